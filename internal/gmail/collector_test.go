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
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/subtrack/scanner/internal/models"
)

// --- Mock mailbox ---

type mockMailbox struct {
	mu       sync.Mutex
	results  map[string][]string
	failing  map[string]error
	messages map[string]models.RawEmail
	fetchErr map[string]error
	fetched  []string
	headers  []string
}

func newMockMailbox() *mockMailbox {
	return &mockMailbox{
		results:  make(map[string][]string),
		failing:  make(map[string]error),
		messages: make(map[string]models.RawEmail),
		fetchErr: make(map[string]error),
	}
}

func (m *mockMailbox) add(id, subject, from string) {
	m.messages[id] = models.RawEmail{ID: id, Subject: subject, Sender: from}
}

func (m *mockMailbox) ListMessageIDs(_ context.Context, query string, limit int) ([]string, error) {
	if err := m.failing[query]; err != nil {
		return nil, err
	}
	ids := m.results[query]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockMailbox) GetMessage(_ context.Context, id string) (*models.RawEmail, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, id)
	m.mu.Unlock()
	return m.lookup(id)
}

func (m *mockMailbox) GetHeaders(_ context.Context, id string) (*models.RawEmail, error) {
	m.mu.Lock()
	m.headers = append(m.headers, id)
	m.mu.Unlock()
	return m.lookup(id)
}

func (m *mockMailbox) lookup(id string) (*models.RawEmail, error) {
	if err := m.fetchErr[id]; err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func TestCollect_DedupsInFirstSeenOrder(t *testing.T) {
	mb := newMockMailbox()
	mb.results["q1"] = []string{"a", "b"}
	mb.results["q2"] = []string{"b", "c", "a"}
	for _, id := range []string{"a", "b", "c"} {
		mb.add(id, "Invoice "+id, "billing@acme.io")
	}

	c := &Collector{Queries: []string{"q1", "q2"}}
	msgs, stats, err := c.Collect(context.Background(), mb)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var got []string
	for _, m := range msgs {
		got = append(got, m.ID)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("order = %v, want a,b,c", got)
	}
	if stats.Queries != 2 || stats.Unique != 3 || stats.Fetched != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCollect_Caps(t *testing.T) {
	mb := newMockMailbox()
	var ids []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("m%d", i)
		ids = append(ids, id)
		mb.add(id, "Receipt", "billing@acme.io")
	}
	mb.results["q"] = ids

	c := &Collector{Queries: []string{"q"}, MaxPerQuery: 8, MaxMessages: 5}
	msgs, stats, err := c.Collect(context.Background(), mb)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.Unique != 8 {
		t.Errorf("Unique = %d, want 8 (per-query cap)", stats.Unique)
	}
	if len(msgs) != 5 {
		t.Errorf("fetched %d, want 5 (message cap)", len(msgs))
	}
}

func TestCollect_PreFilter(t *testing.T) {
	mb := newMockMailbox()
	mb.add("pay", "Payment confirmation", "ops@acme.io")
	mb.add("news", "Weekly newsletter", "billing@acme.io")
	mb.add("chat", "Lunch?", "friend@example.com")
	mb.add("sender", "Your account", "Netflix <info@netflix.com>")
	mb.results["q"] = []string{"pay", "news", "chat", "sender"}

	c := &Collector{Queries: []string{"q"}, PreFilter: true}
	msgs, stats, err := c.Collect(context.Background(), mb)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(mb.headers) != 4 {
		t.Errorf("header fetches = %d, want 4", len(mb.headers))
	}
	if strings.Join(mb.fetched, ",") != "pay,sender" {
		t.Errorf("full fetches = %v, want pay,sender", mb.fetched)
	}
	if stats.Filtered != 2 || len(msgs) != 2 {
		t.Errorf("stats = %+v, msgs = %d", stats, len(msgs))
	}
}

func TestCollect_PreFilterLimit(t *testing.T) {
	mb := newMockMailbox()
	var ids []string
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("m%d", i)
		ids = append(ids, id)
		mb.add(id, "Your invoice", "billing@acme.io")
	}
	mb.results["q"] = ids

	c := &Collector{Queries: []string{"q"}, PreFilter: true, MaxFiltered: 3}
	msgs, _, err := c.Collect(context.Background(), mb)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("fetched %d, want 3", len(msgs))
	}
	if len(mb.headers) != 3 {
		t.Errorf("header fetches = %d, want 3", len(mb.headers))
	}
}

func TestCollect_SkipsFailures(t *testing.T) {
	mb := newMockMailbox()
	mb.failing["bad"] = errors.New("backend error")
	mb.results["good"] = []string{"a", "b", "gone"}
	mb.add("a", "Invoice", "billing@acme.io")
	mb.fetchErr["b"] = errors.New("timeout")

	c := &Collector{Queries: []string{"bad", "good"}}
	msgs, stats, err := c.Collect(context.Background(), mb)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "a" {
		t.Errorf("msgs = %+v", msgs)
	}
	if stats.FailedQuery != 1 || stats.Errors != 1 || stats.Missing != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCollect_UnauthorizedAborts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mb *mockMailbox)
	}{
		{"list", func(mb *mockMailbox) {
			mb.failing["q"] = ErrUnauthorized
		}},
		{"fetch", func(mb *mockMailbox) {
			mb.results["q"] = []string{"a", "b"}
			mb.fetchErr["a"] = fmt.Errorf("fetch message a: %w", ErrUnauthorized)
			mb.add("b", "Invoice", "billing@acme.io")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := newMockMailbox()
			tt.setup(mb)

			c := &Collector{Queries: []string{"q"}}
			_, _, err := c.Collect(context.Background(), mb)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
			for _, id := range mb.fetched {
				if id == "b" {
					t.Error("fetch continued after unauthorized")
				}
			}
		})
	}
}

func TestCollect_ContextCancelled(t *testing.T) {
	mb := newMockMailbox()
	mb.results["q"] = []string{"a"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mb.failing["q"] = ctx.Err()

	c := &Collector{Queries: []string{"q", "q2"}}
	_, stats, err := c.Collect(ctx, mb)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats.Queries != 1 {
		t.Errorf("Queries = %d, want 1", stats.Queries)
	}
}
