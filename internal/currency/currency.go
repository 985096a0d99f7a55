// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package currency converts amounts between the supported currencies using
// a fixed USD-based rate table. Rates are for display totals only.
package currency

import (
	"math"

	"github.com/subtrack/scanner/internal/models"
)

// Rates is units of each currency per one US dollar.
var Rates = map[models.Currency]float64{
	models.USD: 1,
	models.EUR: 0.85,
	models.GBP: 0.73,
	models.AED: 3.67,
}

// Convert returns amount expressed in to, rounded to cents. Unknown
// currencies are treated as USD.
func Convert(amount float64, from, to models.Currency) float64 {
	if from == to {
		return round2(amount)
	}
	return round2(amount / rate(from) * rate(to))
}

// Parse maps a code onto a supported currency, defaulting to USD.
func Parse(code string) models.Currency {
	if c, ok := models.ParseCurrency(code); ok {
		return c
	}
	return models.USD
}

// Symbol returns the display symbol for a currency.
func Symbol(c models.Currency) string {
	switch c {
	case models.EUR:
		return "€"
	case models.GBP:
		return "£"
	case models.AED:
		return "AED "
	}
	return "$"
}

func rate(c models.Currency) float64 {
	if r, ok := Rates[c]; ok {
		return r
	}
	return 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
