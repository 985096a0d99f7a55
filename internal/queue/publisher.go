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

// Package queue publishes scan events to a Redis list for downstream
// consumers (notifications, analytics).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list scan events are pushed to.
const DefaultQueue = "scan_results"

// EventScanCompleted is the envelope type for a finished scan.
const EventScanCompleted = "scan.completed"

// ScanEvent summarises one completed scan.
type ScanEvent struct {
	ScanID           string    `json:"scan_id"`
	UserID           string    `json:"user_id"`
	AccountIDs       []string  `json:"account_ids"`
	Mode             string    `json:"mode"`
	Detected         int       `json:"detected"`
	Cancellations    int       `json:"cancellations"`
	ExistingCount    int       `json:"existing_count"`
	NonSubscriptions int       `json:"non_subscriptions"`
	Errors           int       `json:"errors"`
	TotalProcessed   int       `json:"total_processed"`
	FinishedAt       time.Time `json:"finished_at"`
}

// envelope wraps an event for transport.
type envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Publisher pushes events onto a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a publisher targeting queueName.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// PublishScanCompleted LPUSHes a scan.completed envelope carrying event.
func (p *Publisher) PublishScanCompleted(ctx context.Context, event ScanEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal scan event: %w", err)
	}

	msg := envelope{
		ID:          uuid.New().String(),
		Type:        EventScanCompleted,
		PublishedAt: time.Now().UTC(),
		Payload:     payload,
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, msgJSON).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published scan event",
		"event_id", msg.ID,
		"scan_id", event.ScanID,
		"user_id", event.UserID,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
