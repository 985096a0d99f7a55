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

package oracle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/models"
)

// DefaultMaxBodyChars bounds the email body sent in the user prompt.
const DefaultMaxBodyChars = 6000

const promptRules = `You review a single email and decide whether it records a paid, recurring subscription charge.

Treat the email as a subscription when it shows:
- a payment confirmation, receipt or invoice for a recurring service, with or without a visible amount
- a renewal notice or auto-payment confirmation from a paid service
- a membership fee invoice (gym, software, hosting), including "invoice in the attachments"
- a balance top-up for a usage-billed service

Treat it as a cancellation (isSubscription true, type "cancellation") when a subscription has ended,
been cancelled, or will no longer be charged.

Treat it as NOT a subscription when it is:
- a free trial offer, discount, promotion or marketing copy
- a generic bank or card alert with no identifiable service
- a newsletter, job alert, social notification, security notice or password reset
- a one-time purchase

Amounts: prefer, in order, the charged amount, the invoice total, the receipt amount, the stated fee,
then a top-up amount. When no amount is visible on a paid service email, estimate a typical monthly price
for that kind of service. Never invent an amount for marketing mail.`

const promptFormat = `Respond with ONE JSON object and nothing else:
{
  "isSubscription": boolean,
  "type": "subscription" | "cancellation" | "receipt" | "renewal" | null,
  "serviceName": string | null,
  "amount": number | null,
  "currency": "USD" | "EUR" | "GBP" | "AED" | null,
  "nextRenewalDate": "YYYY-MM-DD" | null,
  "renewalDay": number (1-31) | null,
  "category": one of the categories below | null,
  "confidence": number (1-10),
  "isMonthlyCharge": boolean,
  "description": string | null,
  "reasons": [string]
}`

type example struct {
	subject, body, verdict string
}

var examples = []example{
	{
		"PureGym membership invoice",
		"Your monthly membership fee of AED 129.00 has been charged to your card ending in 1234.",
		`isSubscription true, amount 129.00, currency "AED", serviceName "PureGym", category "Health & Fitness"`,
	},
	{
		"PureGym membership invoice",
		"Deduction notification from Pure Gym. Please see your invoice in the attachments.",
		`isSubscription true, amount 150.00 (estimated), currency "AED", serviceName "PureGym"`,
	},
	{
		"Your CDN Free subscription will be renewed in 3 days",
		"You have an upcoming renewal for your CDN service.",
		`isSubscription true, amount 0.99 (estimated), currency "USD", serviceName "Namecheap CDN"`,
	},
	{
		"Payment Confirmation",
		"You have successfully topped up your balance by $10.00. Team fal",
		`isSubscription true, amount 10.00, currency "USD", serviceName "fal.ai"`,
	},
	{
		"Your Webflow plan has been renewed",
		"Your Webflow Site plan subscription of $14/month has been renewed and is active.",
		`isSubscription true, amount 14.00, currency "USD", serviceName "Webflow", category "Web Services & Hosting"`,
	},
	{
		"Claude Pro subscription payment",
		"Your Claude Pro subscription for $20/month has been successfully charged.",
		`isSubscription true, amount 20.00, currency "USD", serviceName "Anthropic Claude", category "Software & Productivity"`,
	},
	{
		"Your Netflix membership has been cancelled",
		"We've cancelled your membership. You will no longer be charged.",
		`isSubscription true, type "cancellation", serviceName "Netflix"`,
	},
	{
		"50% off your next subscription!",
		"Don't miss out! Get 50% off your first month. Click here to subscribe now!",
		`isSubscription false`,
	},
	{
		"Credit card payment",
		"A payment was processed on your credit card. Login to view details.",
		`isSubscription false (bank alert with no service)`,
	},
}

// SystemPrompt renders the fixed instruction prompt. The category list
// comes from the shared catalog.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(promptRules)
	b.WriteString("\n\n")
	b.WriteString(promptFormat)
	b.WriteString("\n\nCategories:\n")
	for _, name := range catalog.CategoryNames() {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nExamples:\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "%d. Subject: %q\n   Content: %q\n   -> %s\n", i+1, ex.subject, ex.body, ex.verdict)
	}
	return b.String()
}

// UserPrompt renders the per-email prompt, truncating the body to
// maxBody runes.
func UserPrompt(content models.ExtractedContent, maxBody int) string {
	body := content.PlainText
	if maxBody > 0 && utf8.RuneCountInString(body) > maxBody {
		body = string([]rune(body)[:maxBody]) + "\n[truncated]"
	}
	date := ""
	if !content.DateReceived.IsZero() {
		date = content.DateReceived.Format(time.RFC1123Z)
	}
	return fmt.Sprintf(`Classify this email.

Subject: %s
From: %s
Date: %s

Content:
%s

Only mark it as a subscription when there is evidence of a real charge or billing relationship.`,
		content.Subject, content.Sender, date, body)
}
