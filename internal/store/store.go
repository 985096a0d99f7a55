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

// Package store provides the Postgres-backed persistence for detected
// subscriptions, their observed payments and connected Gmail accounts.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgx pool. Updates are last-write-wins.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and prepares the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New creates a store on an existing pool and ensures the tables exist.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure store schema: %w", err)
	}
	slog.Info("store initialised")
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			id                          TEXT PRIMARY KEY,
			user_id                     TEXT NOT NULL,
			service_name                TEXT NOT NULL,
			amount                      NUMERIC(10,2) NOT NULL,
			currency                    TEXT NOT NULL DEFAULT 'USD',
			renewal_day                 INTEGER NOT NULL,
			next_renewal                TIMESTAMPTZ NOT NULL,
			category                    TEXT NOT NULL,
			description                 TEXT NOT NULL DEFAULT '',
			is_active                   BOOLEAN NOT NULL DEFAULT TRUE,
			detected_from_email         BOOLEAN NOT NULL DEFAULT FALSE,
			confidence_score            TEXT NOT NULL DEFAULT '',
			has_payment_history         BOOLEAN NOT NULL DEFAULT FALSE,
			has_consistent_renewal_date BOOLEAN NOT NULL DEFAULT FALSE,
			is_recurring                BOOLEAN NOT NULL DEFAULT FALSE,
			payment_count               INTEGER NOT NULL DEFAULT 0,
			last_payment_date           TIMESTAMPTZ,
			cancellation_date           TIMESTAMPTZ,
			cancellation_reason         TEXT NOT NULL DEFAULT '',
			created_at                  TIMESTAMPTZ DEFAULT NOW(),
			updated_at                  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_subs_user ON subscriptions(user_id);
		CREATE INDEX IF NOT EXISTS idx_subs_active ON subscriptions(user_id, is_active);

		CREATE TABLE IF NOT EXISTS subscription_payments (
			id              BIGSERIAL PRIMARY KEY,
			subscription_id TEXT NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
			amount          NUMERIC(10,2) NOT NULL,
			currency        TEXT NOT NULL DEFAULT 'USD',
			paid_at         TIMESTAMPTZ NOT NULL,
			source          TEXT NOT NULL DEFAULT 'email',
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payments_sub ON subscription_payments(subscription_id);

		CREATE TABLE IF NOT EXISTS gmail_accounts (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			email         TEXT NOT NULL,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry  TIMESTAMPTZ,
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			last_scan_at  TIMESTAMPTZ,
			created_at    TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, email)
		);
	`)
	return err
}

// likeEscape quotes the ILIKE wildcards in s so it matches literally.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
