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

// Package api serves the scanner's HTTP surface: subscription CRUD,
// Gmail account management, mailbox scans and import of confirmed
// detections. Every route except /health requires the X-User-ID header.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/gmail"
	"github.com/subtrack/scanner/internal/heuristic"
	"github.com/subtrack/scanner/internal/merge"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/queue"
	"github.com/subtrack/scanner/internal/replay"
	"github.com/subtrack/scanner/internal/scan"
	"golang.org/x/oauth2"
)

// DefaultMaxAccounts is how many mailboxes one user may connect.
const DefaultMaxAccounts = 3

// SubscriptionStore is the subscription persistence the API needs.
type SubscriptionStore interface {
	ListActive(ctx context.Context, userID string) ([]models.Subscription, error)
	ActiveServiceNames(ctx context.Context, userID string) ([]string, error)
	Get(ctx context.Context, userID, id string) (*models.Subscription, error)
	FindActiveByName(ctx context.Context, userID, name string) (*models.Subscription, error)
	Create(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	Update(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	Deactivate(ctx context.Context, userID, id string) (bool, error)
	Cancel(ctx context.Context, userID, id, reason string) error
	AddPayment(ctx context.Context, p models.Payment) error
}

// AccountStore is the Gmail account persistence the API needs.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, id string) (*models.Account, error)
	AddAccount(ctx context.Context, userID, email string, token *oauth2.Token) (*models.Account, error)
	SaveToken(ctx context.Context, id string, token *oauth2.Token) error
	MarkDisconnected(ctx context.Context, id string) error
	TouchScan(ctx context.Context, id string) error
	RemoveAccount(ctx context.Context, userID, id string) (bool, error)
}

// Mailboxes connects and opens Gmail accounts.
type Mailboxes interface {
	IsConfigured() bool
	AuthURL(state string) string
	Connect(ctx context.Context, code string) (*gmail.Connection, error)
	Open(ctx context.Context, token *oauth2.Token) gmail.Session
}

// EventPublisher receives a summary of every completed scan.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, event queue.ScanEvent) error
}

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config wires the server's collaborators. Events, Guard and Health are
// optional.
type Config struct {
	Subscriptions SubscriptionStore
	Accounts      AccountStore
	Mailboxes     Mailboxes
	Collector     *gmail.Collector
	Orchestrator  *scan.Orchestrator
	Parser        *heuristic.Classifier
	Catalog       *catalog.Catalog
	Guard         replay.Guard
	Events        EventPublisher
	Health        []HealthCheck
	MaxAccounts   int
	Now           func() time.Time
}

// Server implements the HTTP API.
type Server struct {
	subs         SubscriptionStore
	accounts     AccountStore
	mailboxes    Mailboxes
	collector    *gmail.Collector
	orchestrator *scan.Orchestrator
	parser       *heuristic.Classifier
	catalog      *catalog.Catalog
	merger       *merge.Engine
	guard        replay.Guard
	events       EventPublisher
	health       []HealthCheck
	maxAccounts  int
	now          func() time.Time
}

// NewServer creates a server. Missing optional collaborators get
// in-process defaults.
func NewServer(cfg Config) *Server {
	s := &Server{
		subs:         cfg.Subscriptions,
		accounts:     cfg.Accounts,
		mailboxes:    cfg.Mailboxes,
		collector:    cfg.Collector,
		orchestrator: cfg.Orchestrator,
		parser:       cfg.Parser,
		catalog:      cfg.Catalog,
		guard:        cfg.Guard,
		events:       cfg.Events,
		health:       cfg.Health,
		maxAccounts:  cfg.MaxAccounts,
		now:          cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.parser == nil {
		s.parser = heuristic.New(s.catalog, heuristic.Options{Now: s.now})
	}
	if s.orchestrator == nil {
		s.orchestrator = scan.New(s.parser, scan.Pacing{})
	}
	if s.collector == nil {
		s.collector = gmail.DefaultCollector()
	}
	if s.guard == nil {
		s.guard = replay.NewLRUGuard(replay.DefaultCapacity, replay.DefaultTTL)
	}
	if s.maxAccounts <= 0 {
		s.maxAccounts = DefaultMaxAccounts
	}
	s.merger = merge.New(s.catalog, s.now)
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.serveHealth)

	mux.HandleFunc("GET /subscriptions", s.requireUser(s.listSubscriptions))
	mux.HandleFunc("GET /subscriptions/stats", s.requireUser(s.subscriptionStats))
	mux.HandleFunc("GET /subscriptions/upcoming", s.requireUser(s.upcomingRenewals))
	mux.HandleFunc("POST /subscriptions", s.requireUser(s.createSubscription))
	mux.HandleFunc("PUT /subscriptions/{id}", s.requireUser(s.updateSubscription))
	mux.HandleFunc("DELETE /subscriptions/{id}", s.requireUser(s.deleteSubscription))

	mux.HandleFunc("GET /gmail/auth-url", s.requireUser(s.authURL))
	mux.HandleFunc("GET /gmail/accounts", s.requireUser(s.listAccounts))
	mux.HandleFunc("POST /gmail/accounts/connect", s.requireUser(s.connectAccount))
	mux.HandleFunc("POST /gmail/accounts/scan-all", s.requireUser(s.scanAllAccounts))
	mux.HandleFunc("DELETE /gmail/accounts/{id}", s.requireUser(s.removeAccount))
	mux.HandleFunc("POST /gmail/accounts/{id}/scan", s.requireUser(s.scanAccount))
	mux.HandleFunc("POST /gmail/import", s.requireUser(s.importSubscriptions))
	mux.HandleFunc("POST /gmail/test-parser", s.requireUser(s.testParser))
	return mux
}

type userKey struct{}

// requireUser rejects requests without an X-User-ID header.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	for _, h := range s.health {
		if err := h.Check(r.Context()); err != nil {
			slog.Warn("health check failed", "dependency", h.Name, "error", err)
			writeError(w, http.StatusServiceUnavailable, h.Name+" unhealthy")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// Serve starts the API server on port. It binds the port immediately and
// signals readiness via the first returned channel before accepting
// connections. The second channel closes once the server has drained after
// ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) (<-chan struct{}, <-chan struct{}, error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind api port %d: %w", port, err)
	}

	ready := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("api server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("api server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
		}
	}()

	return ready, done, nil
}
