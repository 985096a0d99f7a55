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

// Package heuristic classifies billing email with a weighted keyword and
// regex rule table. It needs no network access and is the fallback when
// the LLM oracle is not configured.
package heuristic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/models"
)

// DefaultMembershipAmount is the placeholder charge for membership
// invoices that carry no readable amount.
const DefaultMembershipAmount = 50.0

// Options tunes a Classifier. Zero values select the defaults.
type Options struct {
	// MembershipAmount replaces DefaultMembershipAmount.
	MembershipAmount float64
	// Now is the clock used for renewal dates.
	Now func() time.Time
}

// Classifier scores emails against a rule table. It is safe for
// concurrent use.
type Classifier struct {
	catalog          *catalog.Catalog
	rules            []Rule
	membershipAmount float64
	now              func() time.Time
}

// New creates a heuristic classifier over the given catalog.
func New(cat *catalog.Catalog, opts Options) *Classifier {
	if cat == nil {
		cat = catalog.Default()
	}
	c := &Classifier{
		catalog:          cat,
		rules:            DefaultRules(cat.Trusted),
		membershipAmount: opts.MembershipAmount,
		now:              opts.Now,
	}
	if c.membershipAmount <= 0 {
		c.membershipAmount = DefaultMembershipAmount
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Name identifies the classifier in logs and scan responses.
func (c *Classifier) Name() string {
	return "heuristic"
}

// Classify never fails; the error return lets it stand in for the oracle.
func (c *Classifier) Classify(_ context.Context, content models.ExtractedContent) (*models.ClassificationResult, error) {
	r := c.Evaluate(content)
	return &r, nil
}

// Evaluate runs the full heuristic pipeline over one email.
func (c *Classifier) Evaluate(content models.ExtractedContent) models.ClassificationResult {
	text := strings.ToLower(content.Subject + " " + content.PlainText + " " + content.Sender)
	s := Score(text, c.rules)

	base := models.ClassificationResult{
		Kind:      models.KindNone,
		Source:    content.Ref(),
		Rationale: append([]string{s.Summary()}, s.Fired...),
	}

	if s.Cancellation >= 3 {
		name := c.serviceName(content.Subject, content.Sender, text)
		base.IsSubscription = true
		base.Kind = models.KindCancellation
		base.ServiceName = models.Ptr(name)
		base.Category = models.Ptr(c.catalog.Categorize(name))
		base.Confidence = clampConfidence(s.Cancellation)
		base.Description = description(content.Subject)
		base.Rationale = append(base.Rationale, "cancellation score reached threshold")
		return base
	}

	base.Confidence = clampConfidence(s.Subscription)
	sig := signalsOf(text, c.catalog)

	if !accepts(s, sig) {
		return base.Reject("subscription evidence below acceptance threshold")
	}

	name := c.serviceName(content.Subject, content.Sender, text)

	amount, currency, found := extractAmount(text)
	freeTier := false
	if !found && sig.known && sig.keywords {
		if v, ok := fallbackAmount(content.PlainText); ok {
			amount, currency, found = v, models.USD, true
			base.Rationale = append(base.Rationale, "amount estimated from bare number")
		} else if sig.membership && sig.invoice {
			// Only trusted services get the membership placeholder.
			amount, currency, found = c.membershipAmount, models.USD, true
			base.Rationale = append(base.Rationale, "amount defaulted for membership invoice")
		}
	}
	if !found {
		if !strings.Contains(text, "free") {
			return base.Reject("no amount found")
		}
		amount, currency, freeTier = 0, models.USD, true
		base.Rationale = append(base.Rationale, "free tier")
	}

	next, explicit := renewalDate(text, c.now())
	if explicit {
		base.Rationale = append(base.Rationale, "explicit renewal date")
	}

	if !passesFinalGate(name, amount, s, sig) {
		return base.Reject("failed final validation")
	}

	base.IsSubscription = true
	base.Kind = models.KindSubscription
	base.ServiceName = models.Ptr(name)
	base.Amount = models.Ptr(amount)
	base.Currency = models.Ptr(currency)
	base.RenewalDay = models.Ptr(next.Day())
	base.NextRenewal = models.Ptr(next)
	base.Category = models.Ptr(c.catalog.Categorize(name))
	base.IsMonthlyCharge = s.Monthly >= 2
	base.FreeTier = freeTier
	base.HasPaymentHistory = s.PaymentHistory
	base.HasConsistentRenewalDate = s.ConsistentRenewal
	base.Description = description(content.Subject)

	slog.Debug("heuristic subscription detected",
		"message_id", content.MessageID,
		"service", name,
		"amount", amount,
		"confidence", base.Confidence,
	)
	return base
}

// signals are the phrase co-occurrences the acceptance tests consult.
type signals struct {
	known        bool
	keywords     bool
	membership   bool
	invoice      bool
	subscription bool
	renewed      bool
	receipt      bool
	paymentConf  bool
	billed       bool
}

func signalsOf(text string, cat *catalog.Catalog) signals {
	has := func(s string) bool { return strings.Contains(text, s) }
	return signals{
		known:        len(cat.TrustedIn(text)) > 0,
		keywords:     has("subscription") || has("membership") || has("plan") || has("billing") || has("invoice"),
		membership:   has("membership"),
		invoice:      has("invoice"),
		subscription: has("subscription"),
		renewed:      has("renewed"),
		receipt:      has("receipt"),
		paymentConf:  has("payment confirmation"),
		billed:       has("billed") || has("charged"),
	}
}

func accepts(s Scores, sig signals) bool {
	if s.Subscription < 2 {
		return false
	}
	if s.Promotional > s.Subscription && s.Subscription < 5 {
		return false
	}
	return s.Monthly >= 1 ||
		s.PaymentHistory ||
		s.ConsistentRenewal ||
		s.Subscription >= 4 ||
		(sig.known && sig.keywords) ||
		(sig.membership && sig.invoice) ||
		(sig.subscription && sig.renewed) ||
		(sig.receipt && sig.known) ||
		(sig.paymentConf && sig.known) ||
		(sig.known && s.Subscription >= 2) ||
		(sig.billed && s.Subscription >= 3)
}

func passesFinalGate(name string, amount float64, s Scores, sig signals) bool {
	if len(name) < 2 || amount < 0 || amount >= MaxAmount {
		return false
	}
	if sig.known && sig.keywords {
		return s.Subscription >= 2
	}
	if (sig.membership && sig.invoice) || (sig.subscription && sig.renewed) {
		if s.Subscription >= 3 {
			return true
		}
	}
	return s.Subscription >= 4
}

func clampConfidence(score int) int {
	switch {
	case score < 1:
		return 1
	case score > 10:
		return 10
	}
	return score
}

const descriptionSubjectLen = 50

func description(subject string) string {
	if utf8.RuneCountInString(subject) <= descriptionSubjectLen {
		return "Auto-detected from email: " + subject
	}
	runes := []rune(subject)
	return fmt.Sprintf("Auto-detected from email: %s...", string(runes[:descriptionSubjectLen]))
}
