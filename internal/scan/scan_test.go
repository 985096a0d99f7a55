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

package scan

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/heuristic"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/oracle"
)

// scriptedClassifier returns canned verdicts keyed by message ID.
type scriptedClassifier struct {
	name       string
	configured bool
	verdicts   map[string]models.ClassificationResult
	errs       map[string]error
	calls      []string
	onCall     func()
}

func (s *scriptedClassifier) Name() string       { return s.name }
func (s *scriptedClassifier) IsConfigured() bool { return s.configured }

func (s *scriptedClassifier) Classify(_ context.Context, c models.ExtractedContent) (*models.ClassificationResult, error) {
	s.calls = append(s.calls, c.MessageID)
	if s.onCall != nil {
		s.onCall()
	}
	if err := s.errs[c.MessageID]; err != nil {
		return nil, err
	}
	v := s.verdicts[c.MessageID]
	v.Source = c.Ref()
	return &v, nil
}

func message(id, subject, body string) models.RawEmail {
	return models.RawEmail{
		ID:      id,
		Subject: subject,
		Sender:  "Sender <s@example.com>",
		Payload: models.MimePart{
			MimeType: "text/plain",
			Data:     base64.URLEncoding.EncodeToString([]byte(body)),
		},
	}
}

func subscription(name string, amount float64) models.ClassificationResult {
	return models.ClassificationResult{
		IsSubscription: true,
		Kind:           models.KindSubscription,
		ServiceName:    models.Ptr(name),
		Amount:         models.Ptr(amount),
		Confidence:     7,
	}
}

func TestRunBatch_Routing(t *testing.T) {
	cancel := models.ClassificationResult{IsSubscription: true, Kind: models.KindCancellation, ServiceName: models.Ptr("Hulu")}
	free := subscription("Tool", 0)
	free.FreeTier = true
	noAmount := subscription("Figma", 0)
	noAmount.Amount = nil

	c := &scriptedClassifier{
		name: "scripted",
		verdicts: map[string]models.ClassificationResult{
			"1": subscription("Netflix", 15.49),
			"2": cancel,
			"3": {Kind: models.KindNone},
			"5": free,
			"6": noAmount,
		},
		errs: map[string]error{"4": errors.New("oracle down")},
	}
	msgs := []models.RawEmail{
		message("1", "receipt", "charged"),
		message("2", "cancelled", "bye"),
		message("3", "news", "hello"),
		message("4", "broken", "x"),
		message("5", "free", "free plan"),
		message("6", "plan", "no price"),
	}

	res, err := New(c, Pacing{}).RunBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Mode != "scripted" {
		t.Errorf("Mode = %q", res.Mode)
	}
	if res.Processed != 6 {
		t.Errorf("Processed = %d, want 6", res.Processed)
	}
	if len(res.Subscriptions) != 1 || res.Subscriptions[0].Name() != "Netflix" {
		t.Errorf("Subscriptions = %+v", res.Subscriptions)
	}
	if len(res.Cancellations) != 1 || res.Cancellations[0].Name() != "Hulu" {
		t.Errorf("Cancellations = %+v", res.Cancellations)
	}
	if len(res.NonSubscriptions) != 3 {
		t.Fatalf("NonSubscriptions = %d, want 3", len(res.NonSubscriptions))
	}
	for _, v := range res.NonSubscriptions {
		if v.ServiceName != nil || v.Amount != nil {
			t.Errorf("rejection carries fields: %+v", v)
		}
	}
	if len(res.Errors) != 1 || res.Errors[0].MessageID != "4" {
		t.Fatalf("Errors = %+v", res.Errors)
	}
	if !errors.Is(res.Errors[0], c.errs["4"]) {
		t.Error("BatchError does not unwrap to the classifier error")
	}
}

func TestRunBatch_CancelReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &scriptedClassifier{
		name:     "scripted",
		verdicts: map[string]models.ClassificationResult{"1": subscription("Netflix", 9)},
		onCall:   cancel,
	}
	msgs := []models.RawEmail{message("1", "a", "a"), message("2", "b", "b"), message("3", "c", "c")}

	res, err := New(c, Pacing{}).RunBatch(ctx, msgs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(c.calls) != 1 {
		t.Errorf("classifier called %d times after cancel, want 1", len(c.calls))
	}
	if res == nil || len(res.Subscriptions) != 1 || res.Processed != 1 {
		t.Errorf("partial result = %+v", res)
	}
}

func TestRunBatch_GroupPacing(t *testing.T) {
	c := &scriptedClassifier{name: "scripted", verdicts: map[string]models.ClassificationResult{}}
	msgs := []models.RawEmail{message("1", "a", "a"), message("2", "b", "b"), message("3", "c", "c")}

	start := time.Now()
	_, err := New(c, Pacing{GroupSize: 2, GroupDelay: 40 * time.Millisecond}).RunBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed %s, want at least one group delay", elapsed)
	}
}

func TestSelect(t *testing.T) {
	fallback := &scriptedClassifier{name: "heuristic"}

	tests := []struct {
		name    string
		primary Optional
		want    string
		paced   bool
	}{
		{"configured primary", &scriptedClassifier{name: "oracle", configured: true}, "oracle", true},
		{"unconfigured primary", &scriptedClassifier{name: "oracle"}, "heuristic", false},
		{"no primary", nil, "heuristic", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Select(tt.primary, fallback, DefaultPacing)
			if o.Mode() != tt.want {
				t.Errorf("Mode = %q, want %q", o.Mode(), tt.want)
			}
			if paced := o.pacing.GroupDelay > 0; paced != tt.paced {
				t.Errorf("paced = %v, want %v", paced, tt.paced)
			}
		})
	}
}

func TestRunBatch_HeuristicEndToEnd(t *testing.T) {
	h := heuristic.New(catalog.Default(), heuristic.Options{})
	msg := models.RawEmail{
		ID:      "wf",
		Subject: "Your Webflow plan has been renewed",
		Sender:  "Webflow <billing@webflow.com>",
		Payload: models.MimePart{
			MimeType: "multipart/alternative",
			Parts: []models.MimePart{{
				MimeType: "text/plain",
				Data: base64.RawURLEncoding.EncodeToString([]byte(
					"Thank you for your payment. Your Webflow Site plan subscription of $14/month has been renewed and is active.")),
			}},
		},
	}

	res, err := New(h, Pacing{}).RunBatch(context.Background(), []models.RawEmail{msg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Subscriptions) != 1 {
		t.Fatalf("Subscriptions = %d, non = %+v", len(res.Subscriptions), res.NonSubscriptions)
	}
	got := res.Subscriptions[0]
	if got.Name() != "Webflow" || got.AmountValue() != 14 || got.Source.MessageID != "wf" {
		t.Errorf("got %+v", got)
	}
}

// cannedCompleter answers every prompt with the same reply.
type cannedCompleter struct{ reply string }

func (c cannedCompleter) Complete(context.Context, string, string) (string, error) {
	return c.reply, nil
}

func TestRunBatch_AmountBound(t *testing.T) {
	c := &scriptedClassifier{
		name: "scripted",
		verdicts: map[string]models.ClassificationResult{
			"under": subscription("Adobe", 499.99),
			"at":    subscription("Gym Club", models.MaxAmount),
			"over":  subscription("Emirates NBD", 1500),
		},
	}
	msgs := []models.RawEmail{
		message("under", "receipt", "charged"),
		message("at", "invoice", "charged"),
		message("over", "statement", "charged"),
	}

	res, err := New(c, Pacing{}).RunBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Subscriptions) != 1 || res.Subscriptions[0].Name() != "Adobe" {
		t.Errorf("Subscriptions = %+v", res.Subscriptions)
	}
	if len(res.NonSubscriptions) != 2 {
		t.Fatalf("NonSubscriptions = %d, want 2", len(res.NonSubscriptions))
	}
	for _, v := range res.NonSubscriptions {
		if v.Amount != nil {
			t.Errorf("rejection carries amount %v", *v.Amount)
		}
	}
}

func TestRunBatch_OracleAmountOutOfRange(t *testing.T) {
	llm := oracle.NewWithCompleter(cannedCompleter{
		reply: `{"isSubscription": true, "serviceName": "Emirates NBD", "amount": 1500, "currency": "AED", "confidence": 7}`,
	}, oracle.Config{}, nil)

	msgs := []models.RawEmail{message("bank", "Card statement", "Your payment of AED 1,500.00 was received.")}
	res, err := Select(llm, heuristic.New(nil, heuristic.Options{}), Pacing{}).RunBatch(context.Background(), msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != "oracle" {
		t.Fatalf("Mode = %q, want oracle", res.Mode)
	}
	if len(res.Subscriptions) != 0 {
		t.Errorf("Subscriptions = %+v, want none", res.Subscriptions)
	}
	if len(res.NonSubscriptions) != 1 || len(res.Errors) != 0 {
		t.Errorf("NonSubscriptions = %d, Errors = %+v", len(res.NonSubscriptions), res.Errors)
	}
}
