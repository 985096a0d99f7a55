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

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/renewal"
)

// ErrParse reports an oracle reply that does not match the expected shape.
var ErrParse = errors.New("oracle: unparsable response")

// verdict mirrors the JSON object the oracle is asked to produce. Pointer
// fields distinguish absent from zero.
type verdict struct {
	IsSubscription  *bool    `json:"isSubscription"`
	Type            *string  `json:"type"`
	ServiceName     *string  `json:"serviceName"`
	Amount          *float64 `json:"amount"`
	Currency        *string  `json:"currency"`
	NextRenewalDate *string  `json:"nextRenewalDate"`
	RenewalDay      *float64 `json:"renewalDay"`
	Category        *string  `json:"category"`
	Confidence      *float64 `json:"confidence"`
	IsMonthlyCharge bool     `json:"isMonthlyCharge"`
	Description     *string  `json:"description"`
	Reasons         []string `json:"reasons"`
}

func parseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeVerdict(raw string) (*verdict, error) {
	var v verdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &v); err != nil {
		return nil, parseError("decode json: %v", err)
	}
	if v.IsSubscription == nil {
		return nil, parseError("missing isSubscription")
	}
	if v.Confidence == nil {
		return nil, parseError("missing confidence")
	}
	if c := *v.Confidence; c < 1 || c > 10 {
		return nil, parseError("confidence %v out of range", c)
	}
	if *v.IsSubscription && (v.ServiceName == nil || strings.TrimSpace(*v.ServiceName) == "") {
		return nil, parseError("missing serviceName")
	}
	return &v, nil
}

// toResult converts a decoded reply into a ClassificationResult for content.
func toResult(raw string, content models.ExtractedContent, cat *catalog.Catalog, now time.Time) (*models.ClassificationResult, error) {
	v, err := decodeVerdict(raw)
	if err != nil {
		return nil, err
	}

	kind := models.KindSubscription
	if v.Type != nil {
		k, ok := models.ParseKind(*v.Type)
		if !ok {
			return nil, parseError("unknown type %q", *v.Type)
		}
		if k != models.KindNone {
			kind = k
		}
	}

	r := &models.ClassificationResult{
		Kind:       models.KindNone,
		Confidence: int(math.Round(*v.Confidence)),
		Rationale:  v.Reasons,
		Source:     content.Ref(),
	}
	if !*v.IsSubscription {
		return r, nil
	}

	name := strings.TrimSpace(*v.ServiceName)
	r.IsSubscription = true
	r.Kind = kind
	r.ServiceName = models.Ptr(name)
	r.Category = models.Ptr(resolveCategory(v.Category, name, cat))
	r.IsMonthlyCharge = v.IsMonthlyCharge
	r.Description = describe(v.Description, content.Subject)
	if kind == models.KindCancellation {
		return r, nil
	}

	cur := models.USD
	if v.Currency != nil {
		c, ok := models.ParseCurrency(*v.Currency)
		if !ok {
			return nil, parseError("unknown currency %q", *v.Currency)
		}
		cur = c
	}
	r.Currency = models.Ptr(cur)
	if v.Amount != nil {
		r.Amount = models.Ptr(*v.Amount)
	}

	var explicit *time.Time
	if v.NextRenewalDate != nil && *v.NextRenewalDate != "" {
		t, err := time.ParseInLocation("2006-01-02", *v.NextRenewalDate, now.Location())
		if err != nil {
			return nil, parseError("nextRenewalDate %q: %v", *v.NextRenewalDate, err)
		}
		explicit = &t
	}

	day := now.Day()
	switch {
	case v.RenewalDay != nil:
		d := *v.RenewalDay
		if d != math.Trunc(d) || d < 1 || d > 31 {
			return nil, parseError("renewalDay %v out of range", d)
		}
		day = int(d)
	case explicit != nil:
		day = explicit.Day()
	}
	r.RenewalDay = models.Ptr(day)

	if explicit != nil {
		r.NextRenewal = explicit
		r.HasConsistentRenewalDate = true
	} else {
		r.NextRenewal = models.Ptr(renewal.Next(day, now))
	}
	return r, nil
}

// resolveCategory keeps a specific category from the oracle and falls back
// to the catalog for missing, generic or unrecognised labels.
func resolveCategory(label *string, name string, cat *catalog.Catalog) models.Category {
	if label != nil {
		if c, ok := models.ParseCategory(*label); ok && c != models.CategoryOther {
			return c
		}
	}
	return cat.Categorize(name)
}

func describe(given *string, subject string) string {
	if given != nil && strings.TrimSpace(*given) != "" {
		return strings.TrimSpace(*given)
	}
	if utf8.RuneCountInString(subject) > 50 {
		return "AI-detected: " + string([]rune(subject)[:50]) + "..."
	}
	return "AI-detected: " + subject
}
