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

// Package scan runs a batch of fetched messages through extraction and
// classification and sorts the verdicts into buckets.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/subtrack/scanner/internal/extract"
	"github.com/subtrack/scanner/internal/models"
)

// Classifier produces a verdict for one extracted email.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, content models.ExtractedContent) (*models.ClassificationResult, error)
}

// Optional is a classifier that may be unavailable at runtime.
type Optional interface {
	Classifier
	IsConfigured() bool
}

// Pacing spaces out classification calls. The zero value disables it.
type Pacing struct {
	GroupSize  int
	ItemDelay  time.Duration
	GroupDelay time.Duration
}

// DefaultPacing bounds the burst load on a remote classifier.
var DefaultPacing = Pacing{
	GroupSize:  3,
	ItemDelay:  500 * time.Millisecond,
	GroupDelay: 2 * time.Second,
}

// BatchError records a message whose classification failed.
type BatchError struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Err       error  `json:"-"`
}

func (e BatchError) Error() string {
	return "message " + e.MessageID + ": " + e.Err.Error()
}

func (e BatchError) Unwrap() error { return e.Err }

// BatchResult buckets the verdicts of one batch.
type BatchResult struct {
	Mode             string                        `json:"mode"`
	Subscriptions    []models.ClassificationResult `json:"subscriptions"`
	Cancellations    []models.ClassificationResult `json:"cancellations"`
	NonSubscriptions []models.ClassificationResult `json:"non_subscriptions"`
	Errors           []BatchError                  `json:"errors"`
	Processed        int                           `json:"processed"`
}

// Orchestrator classifies batches with a single classifier.
type Orchestrator struct {
	classifier Classifier
	pacing     Pacing
}

// New creates an orchestrator. Pass the zero Pacing for local classifiers.
func New(c Classifier, pacing Pacing) *Orchestrator {
	if pacing.GroupSize <= 0 {
		pacing.GroupSize = DefaultPacing.GroupSize
	}
	return &Orchestrator{classifier: c, pacing: pacing}
}

// Select returns an orchestrator over primary when it is configured, paced
// with pacing, and otherwise an unpaced orchestrator over fallback.
func Select(primary Optional, fallback Classifier, pacing Pacing) *Orchestrator {
	if primary != nil && primary.IsConfigured() {
		return New(primary, pacing)
	}
	return New(fallback, Pacing{})
}

// Mode names the classifier in use.
func (o *Orchestrator) Mode() string {
	return o.classifier.Name()
}

// RunBatch classifies messages in order. A failed message is recorded in
// Errors and the batch continues. When ctx is cancelled no further
// classification is started and the partial result is returned with
// ctx.Err().
func (o *Orchestrator) RunBatch(ctx context.Context, messages []models.RawEmail) (*BatchResult, error) {
	result := &BatchResult{Mode: o.classifier.Name()}

	slog.Info("starting batch classification",
		"mode", result.Mode,
		"messages", len(messages),
		"group_size", o.pacing.GroupSize,
	)

	for i, msg := range messages {
		if i > 0 {
			delay := o.pacing.ItemDelay
			if i%o.pacing.GroupSize == 0 {
				delay = o.pacing.GroupDelay
			}
			if err := pause(ctx, delay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		content := extract.Extract(msg)
		verdict, err := o.classifier.Classify(ctx, content)
		result.Processed++
		if err != nil {
			slog.Error("classification failed",
				"message_id", msg.ID,
				"subject", msg.Subject,
				"error", err,
			)
			result.Errors = append(result.Errors, BatchError{MessageID: msg.ID, Subject: msg.Subject, Err: err})
			continue
		}
		result.route(normalize(*verdict))
	}

	slog.Info("batch classification complete",
		"mode", result.Mode,
		"subscriptions", len(result.Subscriptions),
		"cancellations", len(result.Cancellations),
		"non_subscriptions", len(result.NonSubscriptions),
		"errors", len(result.Errors),
	)
	return result, nil
}

func (r *BatchResult) route(v models.ClassificationResult) {
	switch {
	case v.IsSubscription && v.Kind == models.KindCancellation:
		r.Cancellations = append(r.Cancellations, v)
	case !v.IsSubscription:
		r.NonSubscriptions = append(r.NonSubscriptions, v)
	default:
		r.Subscriptions = append(r.Subscriptions, v)
	}
}

// normalize turns a subscription verdict without a positive amount, or with
// one at or above models.MaxAmount, into a rejection.
func normalize(v models.ClassificationResult) models.ClassificationResult {
	if !v.IsSubscription || v.Kind == models.KindCancellation {
		return v
	}
	switch {
	case v.FreeTier:
		return v.Reject("free tier")
	case v.Amount == nil || *v.Amount <= 0:
		return v.Reject("missing amount")
	case *v.Amount >= models.MaxAmount:
		return v.Reject("amount out of range")
	}
	return v
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
