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

package extract

import (
	"regexp"
	"strings"
)

var (
	styleBlockRegex  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptBlockRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// entityReplacer decodes the handful of entities billing mail relies on.
// Output is not rescanned, so "&amp;lt;" decodes to "&lt;".
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

// StripHTML removes style/script blocks and tags, decodes common entities
// and collapses whitespace.
func StripHTML(html string) string {
	text := styleBlockRegex.ReplaceAllString(html, " ")
	text = scriptBlockRegex.ReplaceAllString(text, " ")
	text = htmlTagRegex.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
