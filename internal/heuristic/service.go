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
	"unicode"
	"unicode/utf8"
)

// UnknownService is the name used when nothing identifies the sender.
const UnknownService = "Unknown Service"

var (
	nonAlnumRegex    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	spaceRunRegex    = regexp.MustCompile(`\s+`)
	domainLabelRegex = regexp.MustCompile(`@([^.>\s]+)`)
)

// genericSenderTerms mark display names that describe a mailbox rather
// than a service.
var genericSenderTerms = []string{"noreply", "no-reply", "support", "billing", "team"}

// serviceName picks the service an email is about: a curated brand alias,
// then a trusted service, then the sender display name, then the sender's
// domain label.
func (c *Classifier) serviceName(subject, sender, text string) string {
	fromLower := strings.ToLower(sender)
	if b, ok := c.catalog.MatchBrand(fromLower, strings.ToLower(subject), text); ok {
		return Sanitize(b.Name)
	}
	if trusted := c.catalog.TrustedIn(text); len(trusted) > 0 {
		return Sanitize(trusted[0])
	}
	if name := displayName(sender); name != "" && !isGenericSender(name) {
		if s := Sanitize(name); s != UnknownService {
			return s
		}
	}
	if m := domainLabelRegex.FindStringSubmatch(sender); m != nil {
		return Sanitize(m[1])
	}
	return UnknownService
}

func displayName(sender string) string {
	idx := strings.Index(sender, "<")
	if idx <= 0 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(sender[:idx]), `"'`)
}

func isGenericSender(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range genericSenderTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Sanitize reduces a name to ASCII letters, digits and single spaces and
// capitalises each word. Existing inner capitals are kept ("PureGym").
func Sanitize(name string) string {
	s := nonAlnumRegex.ReplaceAllString(name, " ")
	s = strings.TrimSpace(spaceRunRegex.ReplaceAllString(s, " "))
	if s == "" {
		return UnknownService
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
