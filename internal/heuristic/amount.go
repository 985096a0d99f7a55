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

package heuristic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/subtrack/scanner/internal/models"
)

// Amount bounds. Extracted amounts must fall strictly inside
// (MinExtractedAmount, MaxAmount); the bare-number fallback accepts
// [MinFallbackAmount, MaxAmount).
const (
	MinExtractedAmount = 0.99
	MinFallbackAmount  = 1.0
	MaxAmount          = models.MaxAmount
)

// amountPatterns are tried in priority order against the lowercased text.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:charged|billed|paid)\s*\$(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?:amount|total|charge|bill|payment)[:\s]*\$(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`[$€£](\d+(?:\.\d{2})?)(?:\s*(?:per month|monthly|/month))?`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d{2})?)\s*(?:usd|eur|gbp|aed|\$)`),
	regexp.MustCompile(`(?:subscription|plan|membership)\s*(?:fee|cost|price)[:\s]*\$?(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?:price|cost|fee)[:\s]*(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?:renew|renewal)[:\s]*\$?(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?:^|\s)(\d{1,3}(?:\.\d{2})?)\s*(?:usd|dollars?|per\s+month|monthly)`),
}

var bareNumberRegex = regexp.MustCompile(`\d{1,3}(?:\.\d{2})?`)

// extractAmount returns the first in-range amount found by the ordered
// patterns, with the currency marked near the match.
func extractAmount(text string) (float64, models.Currency, bool) {
	for _, p := range amountPatterns {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
			if err != nil || v <= MinExtractedAmount || v >= MaxAmount {
				continue
			}
			return v, detectCurrency(text, loc[0], loc[1]), true
		}
	}
	return 0, "", false
}

// fallbackAmount scans every bare number in content for a plausible charge.
func fallbackAmount(content string) (float64, bool) {
	for _, m := range bareNumberRegex.FindAllString(content, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil && v >= MinFallbackAmount && v < MaxAmount {
			return v, true
		}
	}
	return 0, false
}

// currencyWindow is how many bytes around a match are inspected for a
// currency marker.
const currencyWindow = 4

func detectCurrency(text string, start, end int) models.Currency {
	match := text[start:end]
	if strings.Contains(match, "$") {
		return models.USD
	}
	lo, hi := start-currencyWindow, end+currencyWindow
	if lo < 0 {
		lo = 0
	}
	if hi > len(text) {
		hi = len(text)
	}
	near := strings.ToLower(text[lo:hi])
	switch {
	case strings.Contains(near, "eur") || strings.Contains(near, "€"):
		return models.EUR
	case strings.Contains(near, "gbp") || strings.Contains(near, "£"):
		return models.GBP
	case strings.Contains(near, "aed"):
		return models.AED
	}
	return models.USD
}
