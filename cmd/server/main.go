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

// Subscription scanner service
//
// Entry point for the scanner HTTP service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to PostgreSQL and Redis
//  3. Selects the classifier (LLM when an API key is configured, heuristic otherwise)
//  4. Serves the subscription, Gmail account and scan API
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/subtrack/scanner/internal/api"
	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/config"
	"github.com/subtrack/scanner/internal/gmail"
	"github.com/subtrack/scanner/internal/heuristic"
	"github.com/subtrack/scanner/internal/oracle"
	"github.com/subtrack/scanner/internal/queue"
	"github.com/subtrack/scanner/internal/replay"
	"github.com/subtrack/scanner/internal/scan"
	"github.com/subtrack/scanner/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting subscription scanner service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	publisher := queue.NewPublisher(rdb, cfg.ScanQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Replay Guard ---
	var guard replay.Guard
	switch cfg.Replay.Backend {
	case "redis":
		guard = replay.NewRedisGuard(rdb, cfg.Replay.TTL)
	default:
		guard = replay.NewLRUGuard(cfg.Replay.Capacity, cfg.Replay.TTL)
	}

	// --- Classifiers ---
	cat := catalog.Default()
	parser := heuristic.New(cat, heuristic.Options{MembershipAmount: cfg.MembershipAmount})
	llm := oracle.New(oracle.Config{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.Model,
		Timeout:      cfg.OpenAI.Timeout,
		MaxBodyChars: cfg.OpenAI.MaxBodyChars,
	}, cat)
	orchestrator := scan.Select(llm, parser, scan.Pacing{
		GroupSize:  cfg.Pacing.GroupSize,
		ItemDelay:  cfg.Pacing.ItemDelay,
		GroupDelay: cfg.Pacing.GroupDelay,
	})

	slog.Info("configuration loaded",
		"analysis_method", orchestrator.Mode(),
		"replay_backend", cfg.Replay.Backend,
		"gmail_prefilter", cfg.Gmail.PreFilter,
		"max_messages", cfg.Gmail.MaxMessages,
	)

	// --- Gmail ---
	connector := gmail.NewConnector(gmail.OAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	if !connector.IsConfigured() {
		slog.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Gmail connect is disabled")
	}
	collector := &gmail.Collector{
		Queries:     gmail.DefaultQueries,
		MaxPerQuery: cfg.Gmail.MaxPerQuery,
		MaxMessages: cfg.Gmail.MaxMessages,
		PreFilter:   cfg.Gmail.PreFilter,
		MaxFiltered: cfg.Gmail.MaxFiltered,
		Delay:       cfg.Gmail.FetchDelay,
	}

	// --- API Server ---
	srv := api.NewServer(api.Config{
		Subscriptions: st,
		Accounts:      st,
		Mailboxes:     connector,
		Collector:     collector,
		Orchestrator:  orchestrator,
		Parser:        parser,
		Catalog:       cat,
		Guard:         guard,
		Events:        publisher,
		Health: []api.HealthCheck{
			{Name: "redis", Check: publisher.Ping},
			{Name: "postgres", Check: st.Ping},
		},
		MaxAccounts: cfg.MaxAccounts,
	})

	ready, done, err := api.Serve(ctx, cfg.Port, srv.Handler())
	if err != nil {
		slog.Error("failed to start api server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()
	<-done

	slog.Info("scanner service stopped")
}
