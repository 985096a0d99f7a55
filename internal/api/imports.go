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

package api

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/subtrack/scanner/internal/extract"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/renewal"
)

// maxImportErrors caps the error messages returned by an import.
const maxImportErrors = 5

type importRequest struct {
	Subscriptions []models.SubscriptionCandidate `json:"subscriptions"`
	Cancellations []models.ClassificationResult  `json:"cancellations"`
}

type importResponse struct {
	Message   string                `json:"message"`
	Imported  []models.Subscription `json:"imported"`
	Cancelled []models.Subscription `json:"cancelled"`
	Errors    []string              `json:"errors"`
}

// importSubscriptions persists detections the user confirmed. Cancellations
// run first and deactivate the matching active record; candidates that
// already exist are skipped.
func (s *Server) importSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil || req.Subscriptions == nil {
		writeError(w, http.StatusBadRequest, "Invalid subscriptions data")
		return
	}
	ctx := r.Context()
	user := userID(r)

	resp := importResponse{
		Imported:  []models.Subscription{},
		Cancelled: []models.Subscription{},
	}
	var problems []string

	for _, c := range req.Cancellations {
		name := strings.TrimSpace(c.Name())
		if name == "" {
			continue
		}
		existing, err := s.subs.FindActiveByName(ctx, user, name)
		if err != nil {
			slog.Error("find subscription failed", "service", name, "error", err)
			continue
		}
		if existing == nil {
			continue
		}
		if err := s.subs.Cancel(ctx, user, existing.ID, "Cancelled via email: "+c.Source.Subject); err != nil {
			slog.Error("cancel subscription failed", "subscription_id", existing.ID, "error", err)
			continue
		}
		existing.IsActive = false
		resp.Cancelled = append(resp.Cancelled, *existing)
		slog.Info("subscription cancelled from email", "subscription_id", existing.ID, "service", existing.ServiceName)
	}

	for _, cand := range req.Subscriptions {
		name := strings.TrimSpace(cand.ServiceName)
		cur, ok := models.ParseCurrency(string(cand.Currency))
		if name == "" || cand.Amount <= 0 || !ok || cand.RenewalDay < 1 || cand.RenewalDay > 31 {
			problems = append(problems, "Missing required fields for "+orUnknown(name))
			continue
		}

		existing, err := s.subs.FindActiveByName(ctx, user, name)
		if err != nil {
			slog.Error("find subscription failed", "service", name, "error", err)
			problems = append(problems, fmt.Sprintf("Failed to import %s: %v", name, err))
			continue
		}
		if existing != nil {
			problems = append(problems, name+" already exists")
			continue
		}

		created, err := s.subs.Create(ctx, s.fromCandidate(user, name, cur, cand))
		if err != nil {
			slog.Error("import subscription failed", "service", name, "error", err)
			problems = append(problems, fmt.Sprintf("Failed to import %s: %v", name, err))
			continue
		}
		if !cand.SourceDate.IsZero() {
			payment := models.Payment{
				SubscriptionID: created.ID,
				Amount:         cand.Amount,
				Currency:       cur,
				PaidAt:         cand.SourceDate,
				Source:         "email",
			}
			if err := s.subs.AddPayment(ctx, payment); err != nil {
				slog.Warn("record payment failed", "subscription_id", created.ID, "error", err)
			}
		}
		resp.Imported = append(resp.Imported, *created)
	}

	resp.Message = importMessage(len(resp.Imported), len(resp.Cancelled), len(problems))
	if len(problems) > maxImportErrors {
		problems = problems[:maxImportErrors]
	}
	resp.Errors = problems
	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	slog.Info("import completed",
		"user_id", user,
		"imported", len(resp.Imported),
		"cancelled", len(resp.Cancelled),
		"errors", len(problems),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fromCandidate(user, name string, cur models.Currency, c models.SubscriptionCandidate) models.Subscription {
	next := c.NextRenewal
	if next.IsZero() {
		next = renewal.Next(c.RenewalDay, s.now())
	}
	category := c.Category
	if _, ok := models.ParseCategory(string(category)); !ok {
		category = s.catalog.Categorize(name)
	}
	description := c.Description
	if description == "" {
		description = "Auto-detected from Gmail"
	}
	paid := c.SourceDate
	if paid.IsZero() {
		paid = s.now()
	}
	return models.Subscription{
		UserID:                   user,
		ServiceName:              name,
		Amount:                   round2(c.Amount),
		Currency:                 cur,
		RenewalDay:               c.RenewalDay,
		NextRenewal:              next,
		Category:                 category,
		Description:              description,
		IsActive:                 true,
		DetectedFromEmail:        true,
		ConfidenceScore:          c.ConfidenceLabel(),
		HasPaymentHistory:        c.HasPaymentHistory,
		HasConsistentRenewalDate: c.HasConsistentRenewalDate,
		IsRecurring:              c.IsRecurring,
		PaymentCount:             c.PaymentCount,
		LastPaymentDate:          &paid,
	}
}

func importMessage(imported, cancelled, problems int) string {
	if imported == 0 {
		if problems > 0 {
			return fmt.Sprintf("No new subscriptions imported (%d had issues)", problems)
		}
		return "No new subscriptions imported"
	}
	msg := fmt.Sprintf("Successfully imported %d subscription%s", imported, plural(imported))
	if cancelled > 0 {
		msg += fmt.Sprintf(" and processed %d cancellation%s", cancelled, plural(cancelled))
	}
	if problems > 0 {
		msg += fmt.Sprintf(" (%d skipped)", problems)
	}
	return msg
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func orUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// testParser runs the heuristic classifier over an ad-hoc message.
func (s *Server) testParser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		From    string `json:"from"`
		Body    string `json:"body"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Subject == "" {
		req.Subject = "Test Subject"
	}
	if req.From == "" {
		req.From = "test@example.com"
	}
	if req.Body == "" {
		req.Body = "Test email body"
	}

	raw := models.RawEmail{
		ID:           "test-parser",
		Subject:      req.Subject,
		Sender:       req.From,
		DateReceived: s.now(),
		Payload: models.MimePart{
			MimeType: "text/plain",
			Data:     base64.StdEncoding.EncodeToString([]byte(req.Body)),
		},
	}
	result := s.parser.Evaluate(extract.Extract(raw))
	writeJSON(w, http.StatusOK, map[string]any{
		"input":   req,
		"parsed":  result,
		"success": result.IsSubscription,
	})
}
