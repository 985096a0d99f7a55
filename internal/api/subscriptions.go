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
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/subtrack/scanner/internal/currency"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/renewal"
)

// upcomingWindow is how far ahead stats count a renewal as upcoming.
const upcomingWindow = 30 * 24 * time.Hour

// upcomingLimit caps the upcoming renewals list.
const upcomingLimit = 5

// subscriptionRequest is the body of create and update calls. Absent
// fields leave the stored value unchanged on update.
type subscriptionRequest struct {
	ServiceName *string  `json:"serviceName"`
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	RenewalDay  *int     `json:"renewalDay"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.ListActive(r.Context(), userID(r))
	if err != nil {
		slog.Error("list subscriptions failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch subscriptions")
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (s *Server) subscriptionStats(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.ListActive(r.Context(), userID(r))
	if err != nil {
		slog.Error("list subscriptions failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	display := currency.Parse(r.URL.Query().Get("currency"))
	writeJSON(w, http.StatusOK, summarize(subs, display, s.now()))
}

// summarize totals active subscriptions in display currency. Every
// subscription is treated as a monthly charge.
func summarize(subs []models.Subscription, display models.Currency, now time.Time) models.Stats {
	stats := models.Stats{
		Currency:   display,
		ByCategory: make(map[models.Category]float64),
	}
	horizon := now.Add(upcomingWindow)
	for _, sub := range subs {
		amount := currency.Convert(sub.Amount, sub.Currency, display)
		stats.TotalMonthly += amount
		stats.ByCategory[sub.Category] = round2(stats.ByCategory[sub.Category] + amount)
		stats.ActiveCount++
		if !sub.NextRenewal.After(horizon) {
			stats.UpcomingCount++
		}
	}
	stats.TotalMonthly = round2(stats.TotalMonthly)
	stats.TotalYearly = round2(stats.TotalMonthly * 12)
	return stats
}

func (s *Server) upcomingRenewals(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.ListActive(r.Context(), userID(r))
	if err != nil {
		slog.Error("list subscriptions failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch upcoming renewals")
		return
	}
	if len(subs) > upcomingLimit {
		subs = subs[:upcomingLimit]
	}
	now := s.now()
	upcoming := make([]models.UpcomingRenewal, 0, len(subs))
	for _, sub := range subs {
		days := renewal.DaysUntil(sub.NextRenewal, now)
		upcoming = append(upcoming, models.UpcomingRenewal{
			Subscription: sub,
			DaysUntil:    days,
			Urgency:      renewal.Urgency(days),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcomingRenewals": upcoming})
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ServiceName == nil || strings.TrimSpace(*req.ServiceName) == "" ||
		req.Amount == nil || req.Currency == nil || req.RenewalDay == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: serviceName, amount, currency, renewalDay")
		return
	}

	sub := models.Subscription{UserID: userID(r)}
	if msg := s.apply(&sub, req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.subs.Create(r.Context(), sub)
	if err != nil {
		slog.Error("create subscription failed", "user_id", sub.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}
	slog.Info("subscription created", "user_id", sub.UserID, "subscription_id", created.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"subscription": created})
}

func (s *Server) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := s.subs.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		slog.Error("get subscription failed", "subscription_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update subscription")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	if msg := s.apply(sub, req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.subs.Update(r.Context(), *sub)
	if err != nil {
		slog.Error("update subscription failed", "subscription_id", sub.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update subscription")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": updated})
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	ok, err := s.subs.Deactivate(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		slog.Error("deactivate subscription failed", "subscription_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete subscription")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subscription deleted successfully"})
}

// apply copies the present request fields onto sub and returns a
// validation message, or "" when the result is valid.
func (s *Server) apply(sub *models.Subscription, req subscriptionRequest) string {
	if req.ServiceName != nil {
		sub.ServiceName = strings.TrimSpace(*req.ServiceName)
		if sub.ServiceName == "" {
			return "serviceName is required"
		}
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return "amount must be positive"
		}
		sub.Amount = round2(*req.Amount)
	}
	if req.Currency != nil {
		c, ok := models.ParseCurrency(*req.Currency)
		if !ok {
			return "unsupported currency"
		}
		sub.Currency = c
	}
	if req.RenewalDay != nil {
		if *req.RenewalDay < 1 || *req.RenewalDay > 31 {
			return "renewalDay must be between 1 and 31"
		}
		sub.RenewalDay = *req.RenewalDay
		sub.NextRenewal = renewal.Next(sub.RenewalDay, s.now())
	}
	if req.Category != nil && *req.Category != "" {
		c, ok := models.ParseCategory(*req.Category)
		if !ok {
			return "unknown category"
		}
		sub.Category = c
	}
	if sub.Category == "" {
		sub.Category = s.catalog.Categorize(sub.ServiceName)
	}
	if req.Description != nil {
		sub.Description = *req.Description
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
