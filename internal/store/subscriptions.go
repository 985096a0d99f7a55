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
)

const subscriptionColumns = `
	id, user_id, service_name, amount::float8, currency, renewal_day,
	next_renewal, category, description, is_active, detected_from_email,
	confidence_score, has_payment_history, has_consistent_renewal_date,
	is_recurring, payment_count, last_payment_date, cancellation_date,
	cancellation_reason, created_at, updated_at`

// ListActive returns the user's active subscriptions ordered by next renewal.
func (s *Store) ListActive(ctx context.Context, userID string) ([]models.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND is_active
		ORDER BY next_renewal
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ActiveServiceNames returns the service names of the user's active
// subscriptions, for duplicate detection during a scan.
func (s *Store) ActiveServiceNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service_name FROM subscriptions WHERE user_id = $1 AND is_active
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list service names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan service name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get returns one subscription, or nil if it does not belong to the user.
func (s *Store) Get(ctx context.Context, userID, id string) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanSubscription(row)
}

// FindActiveByName returns the first active subscription whose service
// name contains name, ignoring case.
func (s *Store) FindActiveByName(ctx context.Context, userID, name string) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND is_active AND service_name ILIKE $2 ESCAPE '\'
		ORDER BY created_at
		LIMIT 1
	`, userID, "%"+likeEscape(name)+"%")
	return scanSubscription(row)
}

// Create inserts sub, assigning an ID when it has none.
func (s *Store) Create(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions
			(id, user_id, service_name, amount, currency, renewal_day, next_renewal,
			 category, description, is_active, detected_from_email, confidence_score,
			 has_payment_history, has_consistent_renewal_date, is_recurring,
			 payment_count, last_payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+subscriptionColumns,
		sub.ID, sub.UserID, sub.ServiceName, sub.Amount, string(sub.Currency),
		sub.RenewalDay, sub.NextRenewal, string(sub.Category), sub.Description,
		sub.DetectedFromEmail, sub.ConfidenceScore, sub.HasPaymentHistory,
		sub.HasConsistentRenewalDate, sub.IsRecurring, sub.PaymentCount,
		sub.LastPaymentDate,
	)
	created, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return created, nil
}

// Update overwrites the editable fields of an existing subscription and
// returns the stored row, or nil if it does not exist.
func (s *Store) Update(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE subscriptions SET
			service_name = $3, amount = $4, currency = $5, renewal_day = $6,
			next_renewal = $7, category = $8, description = $9, is_active = $10,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+subscriptionColumns,
		sub.ID, sub.UserID, sub.ServiceName, sub.Amount, string(sub.Currency),
		sub.RenewalDay, sub.NextRenewal, string(sub.Category), sub.Description,
		sub.IsActive,
	)
	updated, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return updated, nil
}

// Deactivate soft-deletes a subscription. It reports whether a row changed.
func (s *Store) Deactivate(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel deactivates a subscription and records when and why.
func (s *Store) Cancel(ctx context.Context, userID, id, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET is_active = FALSE, cancellation_date = NOW(), cancellation_reason = $3,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, reason)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

// AddPayment records an observed charge.
func (s *Store) AddPayment(ctx context.Context, p models.Payment) error {
	if p.Source == "" {
		p.Source = "email"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscription_payments (subscription_id, amount, currency, paid_at, source)
		VALUES ($1, $2, $3, $4, $5)
	`, p.SubscriptionID, p.Amount, string(p.Currency), p.PaidAt, p.Source)
	if err != nil {
		return fmt.Errorf("add payment: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub, err := readSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		sub, err := readSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func readSubscription(row pgx.Row) (*models.Subscription, error) {
	var (
		sub                models.Subscription
		currency, category string
		lastPayment        *time.Time
		cancelledAt        *time.Time
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ServiceName, &sub.Amount, &currency,
		&sub.RenewalDay, &sub.NextRenewal, &category, &sub.Description,
		&sub.IsActive, &sub.DetectedFromEmail, &sub.ConfidenceScore,
		&sub.HasPaymentHistory, &sub.HasConsistentRenewalDate, &sub.IsRecurring,
		&sub.PaymentCount, &lastPayment, &cancelledAt, &sub.CancellationReason,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Currency = models.Currency(currency)
	sub.Category = models.Category(category)
	sub.LastPaymentDate = lastPayment
	sub.CancellationDate = cancelledAt
	return &sub, nil
}
