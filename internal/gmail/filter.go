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

package gmail

import "strings"

// DefaultQueries are the Gmail searches a scan unions together.
var DefaultQueries = []string{
	"subject:(subscription OR billing OR invoice OR payment OR renewal OR charged OR receipt) -is:spam newer_than:1y",
	"subject:(payment OR paid OR charge OR bill OR invoice OR receipt OR membership) -is:spam newer_than:1y",
	"subject:(monthly OR annual OR plan OR premium OR pro OR plus) -is:spam newer_than:1y",
	"from:(noreply OR billing OR payment OR subscription OR support OR accounts) -is:spam newer_than:1y",
	"from:(webflow OR paddle OR stripe OR paypal OR namecheap OR puregym OR anthropic OR leonardo OR fal.ai) -is:spam newer_than:1y",
	"from:(netflix OR spotify OR adobe OR microsoft OR google OR apple OR github OR figma OR canva) -is:spam newer_than:1y",
	"subject:(cancelled OR canceled OR ended OR terminated OR expired) (subscription OR membership OR plan) -is:spam newer_than:6m",
	"subject:(receipt OR confirmation OR thank OR welcome) (subscription OR payment OR purchase) -is:spam newer_than:6m",
	"subject:(membership OR gym OR fitness) (invoice OR payment OR billing OR fee) -is:spam newer_than:1y",
	"subject:(domain OR hosting OR cdn OR server OR ssl) (renewal OR payment OR invoice OR billing) -is:spam newer_than:1y",
}

var (
	subjectKeywords = []string{
		"payment", "charged", "invoice", "receipt", "billing", "subscription",
		"renewal", "monthly", "annual", "membership", "plan upgraded", "plan renewed",
		"payment confirmation", "payment successful", "payment processed",
		"your receipt", "thank you for your payment", "payment notification",
		"auto-renewal", "recurring payment", "subscription active",
	}

	senderKeywords = []string{
		"noreply", "billing", "payment", "support", "accounts", "no-reply",
		"stripe", "paypal", "paddle", "apple", "google", "microsoft",
		"netflix", "spotify", "adobe", "anthropic", "openai", "github",
		"webflow", "namecheap", "puregym", "leonardo", "fal.ai", "canva",
	}

	excludedSubjectKeywords = []string{
		"newsletter", "digest", "update available", "new feature", "discount",
		"sale", "offer", "promotion", "free trial", "get started", "welcome to",
		"verify your", "confirm your", "password", "security alert", "login",
		"unsubscribe", "preferences", "settings", "activate", "setup",
	}
)

// IsLikelySubscriptionEmail screens a message by its headers before the
// full body is fetched. Marketing and account-security subjects are
// excluded first; otherwise a billing keyword in the subject or a known
// provider in the sender is enough.
func IsLikelySubscriptionEmail(subject, from string) bool {
	subject = strings.ToLower(subject)
	from = strings.ToLower(from)

	if containsAny(subject, excludedSubjectKeywords) {
		return false
	}
	return containsAny(subject, subjectKeywords) || containsAny(from, senderKeywords)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
