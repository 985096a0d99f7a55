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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/replay"
	"golang.org/x/oauth2"
)

func (s *Server) authURL(w http.ResponseWriter, r *http.Request) {
	if !s.mailboxes.IsConfigured() {
		writeError(w, http.StatusServiceUnavailable, "Gmail integration is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": s.mailboxes.AuthURL(userID(r))})
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context(), userID(r))
	if err != nil {
		slog.Error("list accounts failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch Gmail accounts")
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":    accounts,
		"maxAccounts": s.maxAccounts,
		"canAddMore":  activeCount(accounts) < s.maxAccounts,
	})
}

// connectAccount exchanges an authorization code for a new mailbox. Each
// code is claimed in the replay guard first so a double submit cannot
// exchange it twice; the claim is released when the connection fails.
func (s *Server) connectAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}
	ctx := r.Context()
	user := userID(r)

	key := replay.Key(user, req.Code)
	claimed, err := s.guard.Claim(ctx, key)
	if err != nil {
		slog.Error("replay guard unavailable", "user_id", user, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Failed to connect Gmail account")
		return
	}
	if !claimed {
		slog.Warn("authorization code replayed", "user_id", user)
		writeError(w, http.StatusBadRequest, "Authorization code already used")
		return
	}

	release := func() {
		if err := s.guard.Release(ctx, key); err != nil {
			slog.Warn("failed to release authorization code", "user_id", user, "error", err)
		}
	}

	accounts, err := s.accounts.ListAccounts(ctx, user)
	if err != nil {
		release()
		slog.Error("list accounts failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to connect Gmail account")
		return
	}
	active := activeCount(accounts)
	if active >= s.maxAccounts {
		release()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum of %d Gmail accounts allowed", s.maxAccounts))
		return
	}

	conn, err := s.mailboxes.Connect(ctx, req.Code)
	if err != nil {
		release()
		slog.Error("gmail connect failed", "user_id", user, "error", err)
		if isInvalidGrant(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"message": "Authorization code expired or invalid. Please try connecting again.",
				"error":   "invalid_grant",
			})
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to connect Gmail account")
		return
	}

	for _, a := range accounts {
		if a.IsActive && strings.EqualFold(a.Email, conn.Email) {
			writeError(w, http.StatusBadRequest, "This Gmail account is already connected")
			return
		}
	}

	acct, err := s.accounts.AddAccount(ctx, user, conn.Email, conn.Token)
	if err != nil {
		release()
		slog.Error("add account failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to connect Gmail account")
		return
	}

	total := active + 1

	slog.Info("gmail account connected", "user_id", user, "account_id", acct.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Gmail account connected successfully",
		"email":         acct.Email,
		"totalAccounts": total,
	})
}

// activeCount counts connected accounts. Disconnected rows do not hold a
// slot; reconnecting one reuses its row.
func activeCount(accounts []models.Account) int {
	n := 0
	for _, a := range accounts {
		if a.IsActive {
			n++
		}
	}
	return n
}

func (s *Server) removeAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)
	id := r.PathValue("id")

	acct, err := s.accounts.GetAccount(ctx, user, id)
	if err != nil {
		slog.Error("get account failed", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to disconnect Gmail account")
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "Gmail account not found")
		return
	}
	if _, err := s.accounts.RemoveAccount(ctx, user, id); err != nil {
		slog.Error("remove account failed", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to disconnect Gmail account")
		return
	}

	remaining, err := s.accounts.ListAccounts(ctx, user)
	if err != nil {
		slog.Warn("list accounts failed", "user_id", user, "error", err)
	}
	slog.Info("gmail account disconnected", "user_id", user, "account_id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "Gmail account disconnected successfully",
		"email":             acct.Email,
		"remainingAccounts": len(remaining),
	})
}

func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return re.ErrorCode == "invalid_grant"
	}
	return strings.Contains(err.Error(), "invalid_grant")
}
