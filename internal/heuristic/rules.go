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
	"fmt"
	"regexp"
	"strings"

	"github.com/subtrack/scanner/internal/catalog"
)

// Target is the score a rule contributes to.
type Target int

const (
	Promotional Target = iota
	Paid
	Cancellation
	Monthly
)

func (t Target) String() string {
	switch t {
	case Promotional:
		return "promotional"
	case Paid:
		return "subscription"
	case Cancellation:
		return "cancellation"
	case Monthly:
		return "monthly"
	}
	return "unknown"
}

// Flag is a boolean signal a rule sets when it fires.
type Flag int

const (
	NoFlag Flag = iota
	PaymentHistory
	ConsistentRenewal
)

// Rule adds Weight to Target when it matches the lowercased text. A rule
// matches when any of AnyOf is a substring, or when Pattern matches.
type Rule struct {
	Name    string
	AnyOf   []string
	Pattern *regexp.Regexp
	Weight  int
	Target  Target
	Flag    Flag
}

func (r Rule) matches(text string) bool {
	if r.Pattern != nil && r.Pattern.MatchString(text) {
		return true
	}
	for _, term := range r.AnyOf {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Scores is the result of folding a rule table over one email.
type Scores struct {
	Promotional       int
	Subscription      int
	Cancellation      int
	Monthly           int
	PaymentHistory    bool
	ConsistentRenewal bool
	Fired             []string
}

// Score folds rules over text. It is pure: the same inputs always yield
// the same Scores.
func Score(text string, rules []Rule) Scores {
	var s Scores
	for _, r := range rules {
		if !r.matches(text) {
			continue
		}
		switch r.Target {
		case Promotional:
			s.Promotional += r.Weight
		case Paid:
			s.Subscription += r.Weight
		case Cancellation:
			s.Cancellation += r.Weight
		case Monthly:
			s.Monthly += r.Weight
		}
		switch r.Flag {
		case PaymentHistory:
			s.PaymentHistory = true
		case ConsistentRenewal:
			s.ConsistentRenewal = true
		}
		s.Fired = append(s.Fired, fmt.Sprintf("%s+%d:%s", r.Target, r.Weight, r.Name))
	}
	return s
}

// Summary renders the four scores for rationale output.
func (s Scores) Summary() string {
	return fmt.Sprintf("scores subscription=%d promotional=%d cancellation=%d monthly=%d",
		s.Subscription, s.Promotional, s.Cancellation, s.Monthly)
}

// each builds one rule per term, so every matching term scores.
func each(target Target, weight int, terms ...string) []Rule {
	rules := make([]Rule, 0, len(terms))
	for _, term := range terms {
		rules = append(rules, Rule{Name: term, AnyOf: []string{term}, Weight: weight, Target: target})
	}
	return rules
}

func pattern(name, expr string, weight int, target Target, flag Flag) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(expr), Weight: weight, Target: target, Flag: flag}
}

var promotionalTerms = []string{
	"sale", "discount", "offer", "deal", "promo", "special", "limited time",
	"save", "off", "free trial", "try free", "start your free", "get started",
	"sign up", "subscribe now", "join today", "upgrade now", "unlock",
	"click here", "learn more", "find out", "discover", "explore",
	"dont miss", "don't miss", "hurry", "act now", "expires",
	"newsletter", "updates", "announcement", "introducing", "new feature",
	"coming soon", "beta", "early access", "invitation", "invite",
	"unsubscribe", "opt out", "manage preferences", "email preferences",
}

// paidTerms keeps its repeated entries ("receipt", "payment confirmation");
// a repeated term scores once per occurrence in this list.
var paidTerms = []string{
	"payment successful", "payment confirmed", "payment received", "charged",
	"billed", "invoice", "receipt", "billing", "payment processed",
	"transaction complete", "payment method charged", "payment confirmation",
	"membership invoice",
	"receipt", "your receipt", "payment receipt", "billing receipt",
	"invoice receipt", "transaction receipt",
	"renewal", "renewed", "subscription renewed", "auto-renewal",
	"next billing", "upcoming payment", "payment due", "recurring payment",
	"subscription continues", "plan continues", "auto-renew",
	"will be renewed", "subscription to", "membership expires",
	"transaction", "purchase", "order confirmation", "payment confirmation",
	"subscription active", "plan activated", "service continues",
	"monthly billing", "annual billing", "subscription payment",
	"your plan", "your subscription", "monthly charge", "annual fee",
	"subscription fee", "membership fee", "recurring charge",
	"subscription cost", "billing amount", "payment amount",
}

var cancellationTerms = []string{
	"subscription cancelled", "subscription canceled", "plan cancelled",
	"plan canceled", "membership cancelled", "membership canceled",
	"service cancelled", "service canceled", "account closed",
	"subscription ended", "plan ended", "service ended",
	"cancelled your subscription", "canceled your subscription",
	"subscription will end", "plan will end", "service will end",
	"final payment", "last billing", "final invoice",
	"no longer be charged", "billing has stopped", "payments have stopped",
	"auto-renewal disabled", "auto-renew disabled", "recurring billing stopped",
	"subscription termination", "account deactivated", "service discontinued",
}

var monthlyTerms = []string{
	"monthly subscription", "monthly plan", "monthly billing", "monthly charge",
	"monthly payment", "monthly fee", "billed monthly", "charged monthly",
	"recurring monthly", "per month", "/month", "every month",
	"monthly recurring", "monthly membership", "monthly service",
}

// DefaultRules returns the weighted rule table. trusted adds one point per
// trusted service found in the text.
func DefaultRules(trusted []string) []Rule {
	var rules []Rule
	rules = append(rules, each(Promotional, 1, promotionalTerms...)...)
	rules = append(rules, each(Paid, 2, paidTerms...)...)
	rules = append(rules, each(Cancellation, 3, cancellationTerms...)...)
	rules = append(rules, each(Monthly, 2, monthlyTerms...)...)
	for _, name := range trusted {
		if len(name) <= catalog.ShortTermLen {
			rules = append(rules, pattern(name, `\b`+regexp.QuoteMeta(name)+`\b`, 1, Paid, NoFlag))
			continue
		}
		rules = append(rules, each(Paid, 1, name)...)
	}

	rules = append(rules,
		pattern("specific amount", `\$\d+\.\d{2}|\d+\.\d{2}\s*(?:usd|eur|gbp)`, 2, Paid, NoFlag),
		Rule{
			Name:   "management phrasing",
			AnyOf:  []string{"manage subscription", "cancel subscription", "billing details", "payment method"},
			Weight: 2,
			Target: Paid,
		},
		Rule{
			Name:   "strong promotional phrasing",
			AnyOf:  []string{"free trial", "try free", "sign up now", "get started free", "upgrade now"},
			Weight: 3,
			Target: Promotional,
		},

		pattern("previous payment", `(?:previous|last|prior)\s+(?:payment|charge|billing)\s*:?\s*\$?(\d+(?:\.\d{2})?)`, 2, Paid, PaymentHistory),
		pattern("charged last month", `(?:charged|billed)\s+(?:last|previous)\s+month\s*:?\s*\$?(\d+(?:\.\d{2})?)`, 2, Paid, PaymentHistory),
		pattern("recurring charge amount", `(?:recurring|monthly)\s+(?:charge|payment)\s*:?\s*\$?(\d+(?:\.\d{2})?)`, 2, Paid, PaymentHistory),
		pattern("payment history", `(?:payment\s+history|billing\s+history|transaction\s+history)`, 2, Paid, PaymentHistory),

		pattern("renews each month", `(?:renews?|bills?|charges?)\s+(?:on\s+)?(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(?:each|every)\s+month`, 2, Paid, ConsistentRenewal),
		pattern("monthly on day", `(?:monthly|recurring)\s+(?:on\s+)?(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?`, 2, Paid, ConsistentRenewal),
		pattern("next payment date", `(?:next|upcoming)\s+(?:payment|charge|billing)\s*:?\s*([a-zA-Z]+\s+\d{1,2},?\s+\d{4})`, 2, Paid, ConsistentRenewal),
	)
	return rules
}
