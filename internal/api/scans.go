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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/subtrack/scanner/internal/gmail"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/queue"
	"github.com/subtrack/scanner/internal/scan"
	"github.com/subtrack/scanner/internal/store"
)

// scanResponse is returned by both scan routes.
type scanResponse struct {
	ScanID                string                         `json:"scanId"`
	DetectedSubscriptions []models.SubscriptionCandidate `json:"detectedSubscriptions"`
	Cancellations         []models.ClassificationResult  `json:"cancellations"`
	ExistingCount         int                            `json:"existingCount"`
	TotalProcessed        int                            `json:"totalProcessed"`
	NonSubscriptions      int                            `json:"nonSubscriptions"`
	ErrorCount            int                            `json:"errorCount"`
	AnalysisMethod        string                         `json:"analysisMethod"`
	ScannedAccounts       []accountSummary               `json:"scannedAccounts,omitempty"`
	AccountErrors         []accountError                 `json:"errors,omitempty"`
}

type accountSummary struct {
	Email              string `json:"email"`
	SubscriptionsFound int    `json:"subscriptionsFound"`
	CancellationsFound int    `json:"cancellationsFound"`
	EmailsProcessed    int    `json:"emailsProcessed"`
}

type accountError struct {
	Account string `json:"account"`
	Error   string `json:"error"`
}

func (s *Server) scanAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	acct, err := s.accounts.GetAccount(ctx, user, r.PathValue("id"))
	if err != nil {
		slog.Error("get account failed", "account_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to scan Gmail account")
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "Gmail account not found")
		return
	}
	if !acct.IsActive {
		writeError(w, http.StatusBadRequest, "Gmail account is disconnected. Please reconnect it.")
		return
	}

	batch, err := s.scanMailbox(ctx, *acct)
	if err != nil {
		if errors.Is(err, gmail.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Gmail access expired. Please reconnect this Gmail account.")
			return
		}
		slog.Error("gmail scan failed", "account_id", acct.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to scan Gmail account")
		return
	}

	resp, err := s.mergeScan(ctx, user, []*scan.BatchResult{batch})
	if err != nil {
		slog.Error("merge scan failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to scan Gmail account")
		return
	}
	s.publish(ctx, user, []string{acct.ID}, resp)
	writeJSON(w, http.StatusOK, resp)
}

// scanAllAccounts scans every connected mailbox in turn and merges the
// batches once, so a service seen in two mailboxes is reported once.
func (s *Server) scanAllAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	accounts, err := s.accounts.ListAccounts(ctx, user)
	if err != nil {
		slog.Error("list accounts failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to scan Gmail accounts")
		return
	}

	var (
		batches   []*scan.BatchResult
		scanned   []accountSummary
		failures  []accountError
		connected []string
	)
	for _, acct := range accounts {
		if !acct.IsActive {
			continue
		}
		connected = append(connected, acct.ID)

		batch, err := s.scanMailbox(ctx, acct)
		if err != nil {
			if ctx.Err() != nil {
				writeError(w, http.StatusServiceUnavailable, "Scan cancelled")
				return
			}
			slog.Error("gmail scan failed", "account_id", acct.ID, "error", err)
			failures = append(failures, accountError{Account: acct.Email, Error: err.Error()})
			continue
		}
		batches = append(batches, batch)
		scanned = append(scanned, accountSummary{
			Email:              acct.Email,
			SubscriptionsFound: len(batch.Subscriptions),
			CancellationsFound: len(batch.Cancellations),
			EmailsProcessed:    batch.Processed,
		})
	}
	if len(connected) == 0 {
		writeError(w, http.StatusBadRequest, "No Gmail accounts connected")
		return
	}

	resp, err := s.mergeScan(ctx, user, batches)
	if err != nil {
		slog.Error("merge scan failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to scan Gmail accounts")
		return
	}
	resp.ScannedAccounts = scanned
	resp.AccountErrors = failures
	s.publish(ctx, user, connected, resp)
	writeJSON(w, http.StatusOK, resp)
}

// scanMailbox collects and classifies one account's messages. A rejected
// token marks the account disconnected; a refreshed token is saved.
func (s *Server) scanMailbox(ctx context.Context, acct models.Account) (*scan.BatchResult, error) {
	session := s.mailboxes.Open(ctx, store.Token(acct))

	msgs, stats, err := s.collector.Collect(ctx, session)
	if err != nil {
		if errors.Is(err, gmail.ErrUnauthorized) {
			slog.Warn("gmail token rejected, marking account disconnected", "account_id", acct.ID)
			if err := s.accounts.MarkDisconnected(ctx, acct.ID); err != nil {
				slog.Error("mark account disconnected failed", "account_id", acct.ID, "error", err)
			}
		}
		return nil, fmt.Errorf("collect messages for %s: %w", acct.Email, err)
	}

	batch, err := s.orchestrator.RunBatch(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("classify messages for %s: %w", acct.Email, err)
	}

	if token, err := session.Token(); err == nil && token.AccessToken != acct.AccessToken {
		if err := s.accounts.SaveToken(ctx, acct.ID, token); err != nil {
			slog.Error("save refreshed token failed", "account_id", acct.ID, "error", err)
		}
	}
	if err := s.accounts.TouchScan(ctx, acct.ID); err != nil {
		slog.Error("touch scan failed", "account_id", acct.ID, "error", err)
	}

	slog.Info("mailbox scanned",
		"account_id", acct.ID,
		"mode", batch.Mode,
		"fetched", stats.Fetched,
		"subscriptions", len(batch.Subscriptions),
		"cancellations", len(batch.Cancellations),
		"errors", len(batch.Errors),
	)
	return batch, nil
}

func (s *Server) mergeScan(ctx context.Context, user string, batches []*scan.BatchResult) (*scanResponse, error) {
	existing, err := s.subs.ActiveServiceNames(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load existing subscriptions: %w", err)
	}

	resp := &scanResponse{
		ScanID:         uuid.NewString(),
		AnalysisMethod: s.orchestrator.Mode(),
	}
	verdicts := make([][]models.ClassificationResult, 0, len(batches))
	for _, b := range batches {
		batch := make([]models.ClassificationResult, 0, len(b.Subscriptions)+len(b.Cancellations))
		batch = append(batch, b.Subscriptions...)
		batch = append(batch, b.Cancellations...)
		verdicts = append(verdicts, batch)
		resp.TotalProcessed += b.Processed
		resp.NonSubscriptions += len(b.NonSubscriptions)
		resp.ErrorCount += len(b.Errors)
	}

	outcome := s.merger.MergeAll(verdicts, existing)
	resp.DetectedSubscriptions = outcome.Candidates
	resp.Cancellations = outcome.Cancellations
	resp.ExistingCount = outcome.ExistingCount
	if resp.DetectedSubscriptions == nil {
		resp.DetectedSubscriptions = []models.SubscriptionCandidate{}
	}
	if resp.Cancellations == nil {
		resp.Cancellations = []models.ClassificationResult{}
	}
	return resp, nil
}

// publish emits the scan summary. Failures are logged and never fail the
// scan.
func (s *Server) publish(ctx context.Context, user string, accountIDs []string, resp *scanResponse) {
	if s.events == nil {
		return
	}
	event := queue.ScanEvent{
		ScanID:           resp.ScanID,
		UserID:           user,
		AccountIDs:       accountIDs,
		Mode:             resp.AnalysisMethod,
		Detected:         len(resp.DetectedSubscriptions),
		Cancellations:    len(resp.Cancellations),
		ExistingCount:    resp.ExistingCount,
		NonSubscriptions: resp.NonSubscriptions,
		Errors:           resp.ErrorCount,
		TotalProcessed:   resp.TotalProcessed,
		FinishedAt:       s.now().UTC(),
	}
	if err := s.events.PublishScanCompleted(ctx, event); err != nil {
		slog.Error("publish scan event failed", "scan_id", resp.ScanID, "error", err)
	}
}
