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

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestPublishScanCompleted(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	p := NewPublisher(rdb, "")
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	event := ScanEvent{
		ScanID:         "scan-1",
		UserID:         "user-1",
		AccountIDs:     []string{"acc-1"},
		Mode:           "heuristic",
		Detected:       2,
		TotalProcessed: 10,
		FinishedAt:     time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	if err := p.PublishScanCompleted(context.Background(), event); err != nil {
		t.Fatalf("PublishScanCompleted: %v", err)
	}

	items, err := mr.List(DefaultQueue)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue length = %d, want 1", len(items))
	}

	var env struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		PublishedAt time.Time `json:"published_at"`
		Payload     ScanEvent `json:"payload"`
	}
	if err := json.Unmarshal([]byte(items[0]), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		t.Errorf("envelope id %q is not a uuid", env.ID)
	}
	if env.Type != EventScanCompleted {
		t.Errorf("Type = %q", env.Type)
	}
	if env.PublishedAt.IsZero() {
		t.Error("PublishedAt not set")
	}
	if env.Payload.ScanID != "scan-1" || env.Payload.Detected != 2 || env.Payload.AccountIDs[0] != "acc-1" {
		t.Errorf("Payload = %+v", env.Payload)
	}
}

func TestPublishScanCompleted_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	if err := NewPublisher(rdb, "q").PublishScanCompleted(context.Background(), ScanEvent{}); err == nil {
		t.Error("expected error when redis is down")
	}
}
