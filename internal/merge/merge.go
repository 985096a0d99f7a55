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

// Package merge folds classification verdicts into distinct subscription
// candidates. It is the only place duplicate detections are suppressed.
package merge

import (
	"math"
	"strings"
	"time"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/renewal"
)

// amountTolerance is the largest difference between two charges that
// still counts as the same recurring amount.
const amountTolerance = 0.01

// Outcome is the result of merging one or more batches.
type Outcome struct {
	Candidates    []models.SubscriptionCandidate `json:"detected_subscriptions"`
	Cancellations []models.ClassificationResult  `json:"cancellations"`
	AlreadyExists []string                       `json:"already_exists"`
	CancelledKeys []string                       `json:"cancelled_keys"`
	ExistingCount int                            `json:"existing_count"`
}

// evidence accumulates what every detection of one service contributed.
type evidence struct {
	count             int
	paymentHistory    bool
	consistentRenewal bool
}

// Engine merges verdicts against a catalog and clock.
type Engine struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// New creates a merge engine. A nil catalog selects catalog.Default and a
// nil clock selects time.Now.
func New(cat *catalog.Catalog, now func() time.Time) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{catalog: cat, now: now}
}

// Key normalises a service name into the merge key.
func Key(serviceName string) string {
	return strings.ToLower(strings.TrimSpace(serviceName))
}

// Merge folds one batch of verdicts. existing holds the service names
// already active for the account.
func (e *Engine) Merge(results []models.ClassificationResult, existing []string) Outcome {
	return e.MergeAll([][]models.ClassificationResult{results}, existing)
}

// MergeAll folds several batches as one, so duplicates across batches are
// suppressed globally.
func (e *Engine) MergeAll(batches [][]models.ClassificationResult, existing []string) Outcome {
	var out Outcome
	var order []string
	best := map[string]models.ClassificationResult{}
	amounts := map[string][]float64{}
	seen := map[string]evidence{}
	cancelled := map[string]bool{}

	for _, batch := range batches {
		for _, r := range batch {
			if !r.IsSubscription || r.ServiceName == nil {
				continue
			}
			key := Key(*r.ServiceName)
			if key == "" {
				continue
			}

			if r.Kind == models.KindCancellation {
				if !cancelled[key] {
					cancelled[key] = true
					out.CancelledKeys = append(out.CancelledKeys, key)
					out.Cancellations = append(out.Cancellations, r)
				}
				continue
			}

			if r.Amount != nil {
				amounts[key] = append(amounts[key], *r.Amount)
			}
			ev := seen[key]
			ev.count++
			ev.paymentHistory = ev.paymentHistory || r.HasPaymentHistory
			ev.consistentRenewal = ev.consistentRenewal || r.HasConsistentRenewalDate
			seen[key] = ev

			cur, ok := best[key]
			if !ok {
				order = append(order, key)
			}
			if !ok || r.Confidence > cur.Confidence {
				best[key] = r
			}
		}
	}

	active := make(map[string]bool, len(existing))
	for _, name := range existing {
		active[Key(name)] = true
	}

	for _, key := range order {
		if cancelled[key] {
			continue
		}
		if active[key] {
			out.AlreadyExists = append(out.AlreadyExists, key)
			continue
		}
		ev := seen[key]
		c := e.candidate(best[key])
		c.PaymentCount = ev.count
		c.IsRecurring = ev.count > 1 && sameAmount(amounts[key])
		c.HasPaymentHistory = ev.paymentHistory
		c.HasConsistentRenewalDate = ev.consistentRenewal
		out.Candidates = append(out.Candidates, c)
	}
	out.ExistingCount = len(out.AlreadyExists)
	return out
}

func (e *Engine) candidate(r models.ClassificationResult) models.SubscriptionCandidate {
	name := strings.TrimSpace(*r.ServiceName)

	cur := models.USD
	if r.Currency != nil {
		cur = *r.Currency
	}
	category := e.catalog.Categorize(name)
	if r.Category != nil && *r.Category != "" {
		category = *r.Category
	}

	now := e.now()
	day := now.Day()
	if r.RenewalDay != nil {
		day = renewal.ClampDay(*r.RenewalDay)
	}
	next := renewal.Next(day, now)
	if r.NextRenewal != nil {
		next = *r.NextRenewal
	}

	return models.SubscriptionCandidate{
		ServiceName:   name,
		Amount:        r.AmountValue(),
		Currency:      cur,
		RenewalDay:    day,
		NextRenewal:   next,
		Category:      category,
		Description:   r.Description,
		Confidence:    r.Confidence,
		SourceSubject: r.Source.Subject,
		SourceSender:  r.Source.Sender,
		SourceDate:    r.Source.Date,
	}
}

// sameAmount reports whether all charges agree within amountTolerance.
func sameAmount(amounts []float64) bool {
	if len(amounts) == 0 {
		return false
	}
	for _, a := range amounts[1:] {
		if math.Abs(a-amounts[0]) > amountTolerance {
			return false
		}
	}
	return true
}
