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

package models

import "time"

// SubscriptionCandidate is a merged detection ready to be stored.
type SubscriptionCandidate struct {
	ServiceName   string    `json:"service_name"`
	Amount        float64   `json:"amount"`
	Currency      Currency  `json:"currency"`
	RenewalDay    int       `json:"renewal_day"`
	NextRenewal   time.Time `json:"next_renewal"`
	Category      Category  `json:"category"`
	Description   string    `json:"description"`
	Confidence    int       `json:"confidence"`
	IsRecurring   bool      `json:"is_recurring"`
	PaymentCount  int       `json:"payment_count"`
	SourceSubject string    `json:"source_subject"`
	SourceSender  string    `json:"source_sender"`
	SourceDate    time.Time `json:"source_date"`

	HasPaymentHistory        bool `json:"has_payment_history"`
	HasConsistentRenewalDate bool `json:"has_consistent_renewal_date"`
}

// ConfidenceLabel maps the numeric confidence onto the storage label.
func (c SubscriptionCandidate) ConfidenceLabel() string {
	switch {
	case c.Confidence >= 9:
		return "very-high"
	case c.Confidence >= 7:
		return "high"
	default:
		return "medium"
	}
}

// Subscription is a stored recurring payment.
type Subscription struct {
	ID                       string     `json:"id"`
	UserID                   string     `json:"user_id"`
	ServiceName              string     `json:"service_name"`
	Amount                   float64    `json:"amount"`
	Currency                 Currency   `json:"currency"`
	RenewalDay               int        `json:"renewal_day"`
	NextRenewal              time.Time  `json:"next_renewal"`
	Category                 Category   `json:"category"`
	Description              string     `json:"description"`
	IsActive                 bool       `json:"is_active"`
	DetectedFromEmail        bool       `json:"detected_from_email"`
	ConfidenceScore          string     `json:"confidence_score,omitempty"`
	HasPaymentHistory        bool       `json:"has_payment_history"`
	HasConsistentRenewalDate bool       `json:"has_consistent_renewal_date"`
	IsRecurring              bool       `json:"is_recurring"`
	PaymentCount             int        `json:"payment_count"`
	LastPaymentDate          *time.Time `json:"last_payment_date,omitempty"`
	CancellationDate         *time.Time `json:"cancellation_date,omitempty"`
	CancellationReason       string     `json:"cancellation_reason,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// Payment is one observed charge for a subscription.
type Payment struct {
	ID             int64     `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	Amount         float64   `json:"amount"`
	Currency       Currency  `json:"currency"`
	PaidAt         time.Time `json:"paid_at"`
	Source         string    `json:"source"`
}

// Account is a connected Gmail mailbox.
type Account struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  time.Time  `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastScanAt   *time.Time `json:"last_scan_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Stats summarises a user's active subscriptions in one display currency.
type Stats struct {
	Currency      Currency             `json:"currency"`
	TotalMonthly  float64              `json:"total_monthly"`
	TotalYearly   float64              `json:"total_yearly"`
	ActiveCount   int                  `json:"active_count"`
	UpcomingCount int                  `json:"upcoming_count"`
	ByCategory    map[Category]float64 `json:"by_category"`
}

// UpcomingRenewal is an active subscription due within the lookahead window.
type UpcomingRenewal struct {
	Subscription Subscription `json:"subscription"`
	DaysUntil    int          `json:"days_until"`
	Urgency      string       `json:"urgency"`
}
