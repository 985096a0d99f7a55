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

// Subscription scanner batch command
//
// Standalone CLI that runs the detection pipeline outside the HTTP
// service and prints the merged result as JSON. It either classifies
// messages from a JSON file (offline, no credentials needed) or scans a
// stored Gmail account.
//
// Usage:
//
//	go run ./cmd/scan/ --input messages.json [--existing Netflix,Spotify] [--heuristic]
//	go run ./cmd/scan/ --user <id> --account <account id>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/config"
	"github.com/subtrack/scanner/internal/gmail"
	"github.com/subtrack/scanner/internal/heuristic"
	"github.com/subtrack/scanner/internal/merge"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/oracle"
	"github.com/subtrack/scanner/internal/scan"
	"github.com/subtrack/scanner/internal/store"
)

// report is the command's JSON output.
type report struct {
	Mode             string              `json:"mode"`
	Outcome          merge.Outcome       `json:"outcome"`
	TotalProcessed   int                 `json:"total_processed"`
	NonSubscriptions int                 `json:"non_subscriptions"`
	Errors           []scan.BatchError   `json:"errors"`
	Collected        *gmail.CollectStats `json:"collected,omitempty"`
}

func main() {
	// Structured JSON logging on stderr; the report goes to stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	inputFlag := flag.String("input", "", "JSON file holding an array of messages to classify")
	userFlag := flag.String("user", "", "User ID owning the account to scan")
	accountFlag := flag.String("account", "", "Stored Gmail account ID to scan")
	existingFlag := flag.String("existing", "", "Comma-separated service names treated as already tracked (--input mode)")
	heuristicFlag := flag.Bool("heuristic", false, "Force the heuristic classifier even when an API key is configured")
	flag.Parse()

	if (*inputFlag == "") == (*accountFlag == "") {
		fmt.Fprintf(os.Stderr, "Error: exactly one of --input or --account is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *accountFlag != "" && *userFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: --user is required with --account\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat := catalog.Default()
	parser := heuristic.New(cat, heuristic.Options{MembershipAmount: cfg.MembershipAmount})
	var llm scan.Optional
	if !*heuristicFlag {
		llm = oracle.New(oracle.Config{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			Timeout:      cfg.OpenAI.Timeout,
			MaxBodyChars: cfg.OpenAI.MaxBodyChars,
		}, cat)
	}
	orchestrator := scan.Select(llm, parser, scan.Pacing{
		GroupSize:  cfg.Pacing.GroupSize,
		ItemDelay:  cfg.Pacing.ItemDelay,
		GroupDelay: cfg.Pacing.GroupDelay,
	})
	slog.Info("starting scan", "analysis_method", orchestrator.Mode())

	var (
		messages []models.RawEmail
		existing []string
		stats    *gmail.CollectStats
	)
	if *inputFlag != "" {
		messages, err = readMessages(*inputFlag)
		if err != nil {
			slog.Error("failed to read messages", "path", *inputFlag, "error", err)
			os.Exit(1)
		}
		existing = splitList(*existingFlag)
	} else {
		messages, existing, stats, err = collectAccount(ctx, cfg, *userFlag, *accountFlag)
		if err != nil {
			slog.Error("failed to collect account", "account_id", *accountFlag, "error", err)
			os.Exit(1)
		}
	}

	// --- Run Pipeline ---
	batch, err := orchestrator.RunBatch(ctx, messages)
	if err != nil {
		slog.Error("scan interrupted", "processed", batch.Processed, "error", err)
		os.Exit(1)
	}

	verdicts := append(append([]models.ClassificationResult(nil), batch.Subscriptions...), batch.Cancellations...)
	out := report{
		Mode:             batch.Mode,
		Outcome:          merge.New(cat, nil).Merge(verdicts, existing),
		TotalProcessed:   batch.Processed,
		NonSubscriptions: len(batch.NonSubscriptions),
		Errors:           batch.Errors,
		Collected:        stats,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	slog.Info("scan complete",
		"processed", out.TotalProcessed,
		"detected", len(out.Outcome.Candidates),
		"cancellations", len(out.Outcome.Cancellations),
		"existing", out.Outcome.ExistingCount,
		"errors", len(out.Errors),
	)
}

func readMessages(path string) ([]models.RawEmail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs []models.RawEmail
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return msgs, nil
}

// collectAccount fetches the messages of a stored account along with the
// user's active service names.
func collectAccount(ctx context.Context, cfg *config.Config, userID, accountID string) ([]models.RawEmail, []string, *gmail.CollectStats, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	defer st.Close()

	acct, err := st.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	if acct == nil {
		return nil, nil, nil, fmt.Errorf("account %s not found for user %s", accountID, userID)
	}

	connector := gmail.NewConnector(gmail.OAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	collector := &gmail.Collector{
		Queries:     gmail.DefaultQueries,
		MaxPerQuery: cfg.Gmail.MaxPerQuery,
		MaxMessages: cfg.Gmail.MaxMessages,
		PreFilter:   cfg.Gmail.PreFilter,
		MaxFiltered: cfg.Gmail.MaxFiltered,
		Delay:       cfg.Gmail.FetchDelay,
	}

	session := connector.Open(ctx, store.Token(*acct))
	msgs, stats, err := collector.Collect(ctx, session)
	if err != nil {
		return nil, nil, nil, err
	}
	if token, err := session.Token(); err == nil && token.AccessToken != acct.AccessToken {
		if err := st.SaveToken(ctx, acct.ID, token); err != nil {
			slog.Warn("failed to save refreshed token", "account_id", acct.ID, "error", err)
		}
	}

	existing, err := st.ActiveServiceNames(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	return msgs, existing, &stats, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
