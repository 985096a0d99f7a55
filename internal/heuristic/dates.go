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
	"strings"
	"time"

	"github.com/subtrack/scanner/internal/renewal"
)

// dateExpr matches the date spellings seen in billing mail.
const dateExpr = `([a-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}|\d{1,2}\s+[a-z]{3,9}\.?,?\s+\d{4}|\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})`

var renewalDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`next\s+(?:billing|payment|renewal)(?:\s+date)?\s*(?:is|on|:)?\s*` + dateExpr),
	regexp.MustCompile(`due\s+(?:date|on)\s*(?:is|:)?\s*` + dateExpr),
	regexp.MustCompile(`renews?\s+on\s*:?\s*` + dateExpr),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
}

var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"2006-01-02",
}

var (
	ordinalSuffixRegex = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)
	dateNoiseReplacer  = strings.NewReplacer(".", "", ",", ", ")
)

// renewalDate returns the first explicit future billing date in text, or
// one month after now when none is found.
func renewalDate(text string, now time.Time) (time.Time, bool) {
	for _, p := range renewalDatePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if t, ok := parseDate(m[1]); ok && t.After(now) {
				return t, true
			}
		}
	}
	return renewal.AddMonth(now), false
}

func parseDate(s string) (time.Time, bool) {
	s = ordinalSuffixRegex.ReplaceAllString(strings.TrimSpace(s), "$1")
	s = dateNoiseReplacer.Replace(s)
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
