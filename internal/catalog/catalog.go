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

// Package catalog holds the ordered service tables shared by both
// classifiers and the merge engine: brand aliases used for service-name
// extraction, the trusted-service list, and the service→category mapper.
//
// Every table is an ordered slice. Lookups are first-match-wins substring
// checks, so entry order is significant. Brand aliases and trusted names of
// ShortTermLen bytes or fewer must match as whole words ("fal" does not
// match "false").
package catalog

import (
	"strings"

	"github.com/subtrack/scanner/internal/models"
)

// Brand is a service with the lowercase aliases that identify it in mail.
type Brand struct {
	Name    string
	Aliases []string
}

// CategoryRule assigns Category when any of Terms is a substring of the
// lowercased service name.
type CategoryRule struct {
	Category models.Category
	Terms    []string
}

// Catalog is the shared lookup table set. A Catalog is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	Brands            []Brand
	Trusted           []string
	ServiceCategories []CategoryRule
	KeywordCategories []CategoryRule
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Brands:            defaultBrands,
		Trusted:           defaultTrusted,
		ServiceCategories: defaultServiceCategories,
		KeywordCategories: defaultKeywordCategories,
	}
}

// Categorize maps a service name onto one category: direct service lookup
// first, then generic keyword families, else Other.
func (c *Catalog) Categorize(serviceName string) models.Category {
	name := strings.ToLower(strings.TrimSpace(serviceName))
	if name == "" {
		return models.CategoryOther
	}
	if cat, ok := firstRule(c.ServiceCategories, name); ok {
		return cat
	}
	if cat, ok := firstRule(c.KeywordCategories, name); ok {
		return cat
	}
	return models.CategoryOther
}

func firstRule(rules []CategoryRule, name string) (models.Category, bool) {
	for _, rule := range rules {
		for _, term := range rule.Terms {
			if strings.Contains(name, term) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// MatchBrand returns the first brand, in table order, with an alias found
// in any of texts. Texts are expected in lowercase.
func (c *Catalog) MatchBrand(texts ...string) (Brand, bool) {
	for _, b := range c.Brands {
		for _, alias := range b.Aliases {
			for _, text := range texts {
				if Contains(text, alias) {
					return b, true
				}
			}
		}
	}
	return Brand{}, false
}

// TrustedIn returns every trusted service name found in text, in table
// order. text is expected in lowercase.
func (c *Catalog) TrustedIn(text string) []string {
	var found []string
	for _, name := range c.Trusted {
		if Contains(text, name) {
			found = append(found, name)
		}
	}
	return found
}

// ShortTermLen is the longest term matched only as a whole word.
const ShortTermLen = 3

// Contains reports whether term occurs in text. Terms of ShortTermLen bytes
// or fewer must not touch a letter or digit on either side.
func Contains(text, term string) bool {
	if len(term) > ShortTermLen {
		return strings.Contains(text, term)
	}
	for from := 0; ; {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if !isWordByte(text, start-1) && !isWordByte(text, end) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	b := text[i]
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// CategoryNames lists the category labels for prompts and validation.
func CategoryNames() []string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return names
}
