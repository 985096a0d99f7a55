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

package gmail

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/subtrack/scanner/internal/models"
)

// Collection limits.
const (
	DefaultMaxPerQuery = 50
	DefaultMaxMessages = 100
	DefaultMaxFiltered = 50
)

// Mailbox is the subset of Client the collector needs.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, query string, limit int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*models.RawEmail, error)
	GetHeaders(ctx context.Context, id string) (*models.RawEmail, error)
}

// Collector gathers candidate billing messages from a mailbox.
type Collector struct {
	Queries     []string
	MaxPerQuery int
	MaxMessages int
	// PreFilter screens headers with IsLikelySubscriptionEmail before the
	// full fetch; at most MaxFiltered messages pass.
	PreFilter   bool
	MaxFiltered int
	// Delay is slept between message fetches.
	Delay time.Duration
}

// CollectStats counts what a collection run did.
type CollectStats struct {
	Queries     int `json:"queries"`
	FailedQuery int `json:"failed_queries"`
	Unique      int `json:"unique"`
	Filtered    int `json:"filtered"`
	Fetched     int `json:"fetched"`
	Missing     int `json:"missing"`
	Errors      int `json:"errors"`
}

// DefaultCollector uses the default queries and limits without
// pre-filtering.
func DefaultCollector() *Collector {
	return &Collector{
		Queries:     DefaultQueries,
		MaxPerQuery: DefaultMaxPerQuery,
		MaxMessages: DefaultMaxMessages,
		MaxFiltered: DefaultMaxFiltered,
	}
}

// Collect unions the query results (deduplicated by message ID, in first
// seen order), caps them and fetches each message. Failing queries and
// messages are logged and skipped. ErrUnauthorized and context
// cancellation abort the run.
func (c *Collector) Collect(ctx context.Context, mb Mailbox) ([]models.RawEmail, CollectStats, error) {
	var stats CollectStats

	seen := make(map[string]bool)
	var ids []string
	for _, q := range c.queries() {
		stats.Queries++
		found, err := mb.ListMessageIDs(ctx, q, c.maxPerQuery())
		if err != nil {
			if abort(ctx, err) {
				return nil, stats, err
			}
			slog.Warn("gmail query failed", "query", q, "error", err)
			stats.FailedQuery++
			continue
		}
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	stats.Unique = len(ids)

	if limit := c.maxMessages(); len(ids) > limit {
		ids = ids[:limit]
	}

	if c.PreFilter {
		filtered, err := c.screen(ctx, mb, ids, &stats)
		if err != nil {
			return nil, stats, err
		}
		ids = filtered
	}

	msgs := make([]models.RawEmail, 0, len(ids))
	for i, id := range ids {
		if i > 0 && c.Delay > 0 {
			select {
			case <-ctx.Done():
				return msgs, stats, ctx.Err()
			case <-time.After(c.Delay):
			}
		}
		msg, err := mb.GetMessage(ctx, id)
		if err != nil {
			if abort(ctx, err) {
				return msgs, stats, err
			}
			slog.Warn("gmail fetch failed", "message_id", id, "error", err)
			stats.Errors++
			continue
		}
		if msg == nil {
			stats.Missing++
			continue
		}
		msgs = append(msgs, *msg)
		stats.Fetched++
	}

	slog.Info("gmail collection complete",
		"queries", stats.Queries,
		"unique", stats.Unique,
		"fetched", stats.Fetched,
		"errors", stats.Errors,
	)
	return msgs, stats, nil
}

func (c *Collector) screen(ctx context.Context, mb Mailbox, ids []string, stats *CollectStats) ([]string, error) {
	limit := c.MaxFiltered
	if limit <= 0 {
		limit = DefaultMaxFiltered
	}
	var kept []string
	for _, id := range ids {
		if len(kept) >= limit {
			break
		}
		h, err := mb.GetHeaders(ctx, id)
		if err != nil {
			if abort(ctx, err) {
				return nil, err
			}
			slog.Warn("gmail header fetch failed", "message_id", id, "error", err)
			stats.Errors++
			continue
		}
		if h != nil && IsLikelySubscriptionEmail(h.Subject, h.Sender) {
			kept = append(kept, id)
		}
	}
	stats.Filtered = len(kept)
	return kept, nil
}

func abort(ctx context.Context, err error) bool {
	return errors.Is(err, ErrUnauthorized) || ctx.Err() != nil
}

func (c *Collector) queries() []string {
	if len(c.Queries) == 0 {
		return DefaultQueries
	}
	return c.Queries
}

func (c *Collector) maxPerQuery() int {
	if c.MaxPerQuery <= 0 {
		return DefaultMaxPerQuery
	}
	return c.MaxPerQuery
}

func (c *Collector) maxMessages() int {
	if c.MaxMessages <= 0 {
		return DefaultMaxMessages
	}
	return c.MaxMessages
}
