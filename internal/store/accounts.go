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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subtrack/scanner/internal/models"
	"golang.org/x/oauth2"
)

const accountColumns = `
	id, user_id, email, access_token, refresh_token, token_expiry,
	is_active, last_scan_at, created_at`

// ListAccounts returns the user's mailboxes, including disconnected ones,
// oldest first.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM gmail_accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := readAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// GetAccount returns one mailbox, or nil if it does not belong to the user.
func (s *Store) GetAccount(ctx context.Context, userID, id string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM gmail_accounts
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	a, err := readAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// AddAccount stores a newly connected mailbox. Reconnecting an address the
// user already has replaces its tokens and reactivates it.
func (s *Store) AddAccount(ctx context.Context, userID, email string, token *oauth2.Token) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO gmail_accounts (id, user_id, email, access_token, refresh_token, token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, email) DO UPDATE SET
			access_token  = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), gmail_accounts.refresh_token),
			token_expiry  = EXCLUDED.token_expiry,
			is_active     = TRUE
		RETURNING `+accountColumns,
		uuid.NewString(), userID, email, token.AccessToken, token.RefreshToken, expiry(token),
	)
	a, err := readAccount(row)
	if err != nil {
		return nil, fmt.Errorf("add account: %w", err)
	}
	return a, nil
}

// SaveToken persists a refreshed token for an account.
func (s *Store) SaveToken(ctx context.Context, id string, token *oauth2.Token) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE gmail_accounts
		SET access_token = $2,
		    refresh_token = COALESCE(NULLIF($3::text, ''), refresh_token),
		    token_expiry = $4
		WHERE id = $1
	`, id, token.AccessToken, token.RefreshToken, expiry(token))
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// MarkDisconnected deactivates an account whose token was rejected.
func (s *Store) MarkDisconnected(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE gmail_accounts SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark account disconnected: %w", err)
	}
	return nil
}

// TouchScan sets last_scan_at to NOW().
func (s *Store) TouchScan(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE gmail_accounts SET last_scan_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch scan: %w", err)
	}
	return nil
}

// RemoveAccount deletes a mailbox. It reports whether a row was removed.
func (s *Store) RemoveAccount(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gmail_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("remove account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Token rebuilds the OAuth token stored for a.
func Token(a models.Account) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       a.TokenExpiry,
	}
}

func expiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	return &token.Expiry
}

func readAccount(row pgx.Row) (*models.Account, error) {
	var (
		a           models.Account
		tokenExpiry *time.Time
	)
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Email, &a.AccessToken, &a.RefreshToken, &tokenExpiry,
		&a.IsActive, &a.LastScanAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if tokenExpiry != nil {
		a.TokenExpiry = *tokenExpiry
	}
	return &a, nil
}
