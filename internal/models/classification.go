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

import (
	"strings"
	"time"
)

// MaxAmount is the exclusive upper bound on an accepted subscription charge.
const MaxAmount = 500.0

// Kind is the type of billing event an email describes.
type Kind string

const (
	KindSubscription Kind = "subscription"
	KindCancellation Kind = "cancellation"
	KindReceipt      Kind = "receipt"
	KindRenewal      Kind = "renewal"
	KindNone         Kind = "none"
)

// ParseKind maps a wire value onto a Kind. ok is false for unknown values.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSubscription, KindCancellation, KindReceipt, KindRenewal, KindNone:
		return k, true
	}
	return "", false
}

// Currency is an ISO code from the supported set.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	AED Currency = "AED"
)

// ParseCurrency maps a code onto a supported Currency.
func ParseCurrency(s string) (Currency, bool) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case USD, EUR, GBP, AED:
		return c, true
	}
	return "", false
}

// Category is one of the fixed subscription categories.
type Category string

const (
	CategoryEntertainment  Category = "Entertainment & Media"
	CategorySoftware       Category = "Software & Productivity"
	CategoryHealth         Category = "Health & Fitness"
	CategoryWebServices    Category = "Web Services & Hosting"
	CategoryGaming         Category = "Gaming"
	CategoryEducation      Category = "Education & Learning"
	CategoryFood           Category = "Food & Delivery"
	CategoryTransportation Category = "Transportation"
	CategoryFinance        Category = "Finance & Banking"
	CategoryCommunication  Category = "Communication"
	CategoryNews           Category = "News & Magazines"
	CategoryMusic          Category = "Music & Audio"
	CategoryVideo          Category = "Video & Streaming"
	CategoryDesign         Category = "Design & Creative"
	CategoryBusiness       Category = "Business & Professional"
	CategorySecurity       Category = "Security & Privacy"
	CategoryStorage        Category = "Storage & Cloud"
	CategoryShopping       Category = "Shopping & Retail"
	CategoryUtilities      Category = "Utilities & Services"
	CategoryTravel         Category = "Travel & Tourism"
	CategorySports         Category = "Sports & Recreation"
	CategoryOther          Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEntertainment, CategorySoftware, CategoryHealth, CategoryWebServices,
	CategoryGaming, CategoryEducation, CategoryFood, CategoryTransportation,
	CategoryFinance, CategoryCommunication, CategoryNews, CategoryMusic,
	CategoryVideo, CategoryDesign, CategoryBusiness, CategorySecurity,
	CategoryStorage, CategoryShopping, CategoryUtilities, CategoryTravel,
	CategorySports, CategoryOther,
}

// ParseCategory matches a category label exactly, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// ClassificationResult is the verdict for a single email, produced by
// either classifier.
//
// When IsSubscription is false, ServiceName, Amount and Category are nil.
// Cancellations carry IsSubscription = true, Kind = KindCancellation and
// a service name.
type ClassificationResult struct {
	IsSubscription           bool       `json:"is_subscription"`
	Kind                     Kind       `json:"kind"`
	ServiceName              *string    `json:"service_name"`
	Amount                   *float64   `json:"amount"`
	Currency                 *Currency  `json:"currency"`
	RenewalDay               *int       `json:"renewal_day"`
	NextRenewal              *time.Time `json:"next_renewal"`
	Category                 *Category  `json:"category"`
	Confidence               int        `json:"confidence"`
	IsMonthlyCharge          bool       `json:"is_monthly_charge"`
	FreeTier                 bool       `json:"free_tier,omitempty"`
	HasPaymentHistory        bool       `json:"has_payment_history"`
	HasConsistentRenewalDate bool       `json:"has_consistent_renewal_date"`
	Description              string     `json:"description,omitempty"`
	Rationale                []string   `json:"rationale,omitempty"`
	Source                   EmailRef   `json:"source"`
}

// Name returns the service name or "" when absent.
func (r ClassificationResult) Name() string {
	if r.ServiceName == nil {
		return ""
	}
	return *r.ServiceName
}

// AmountValue returns the amount or 0 when absent.
func (r ClassificationResult) AmountValue() float64 {
	if r.Amount == nil {
		return 0
	}
	return *r.Amount
}

// Reject returns a non-subscription verdict for the same message, keeping
// the rationale gathered so far and appending reason.
func (r ClassificationResult) Reject(reason string) ClassificationResult {
	rationale := append(append([]string(nil), r.Rationale...), reason)
	return ClassificationResult{
		IsSubscription: false,
		Kind:           KindNone,
		Confidence:     r.Confidence,
		Rationale:      rationale,
		Source:         r.Source,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
