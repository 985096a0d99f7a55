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

package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/subtrack/scanner/internal/gmail"
	"github.com/subtrack/scanner/internal/models"
	"github.com/subtrack/scanner/internal/queue"
	"golang.org/x/oauth2"
)

// --- Mock subscription store ---

type mockSubs struct {
	mu       sync.Mutex
	next     int
	subs     map[string]*models.Subscription
	order    []string
	payments []models.Payment
	reasons  map[string]string
	err      error
}

func newMockSubs() *mockSubs {
	return &mockSubs{subs: make(map[string]*models.Subscription), reasons: make(map[string]string)}
}

func (m *mockSubs) seed(sub models.Subscription) *models.Subscription {
	created, _ := m.Create(context.Background(), sub)
	return created
}

func (m *mockSubs) ListActive(_ context.Context, userID string) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Subscription
	for _, id := range m.order {
		if s := m.subs[id]; s.UserID == userID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubs) ActiveServiceNames(ctx context.Context, userID string) ([]string, error) {
	subs, err := m.ListActive(ctx, userID)
	var names []string
	for _, s := range subs {
		names = append(names, s.ServiceName)
	}
	return names, err
}

func (m *mockSubs) Get(_ context.Context, userID, id string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSubs) FindActiveByName(ctx context.Context, userID, name string) (*models.Subscription, error) {
	subs, err := m.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if strings.Contains(strings.ToLower(s.ServiceName), strings.ToLower(name)) {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *mockSubs) Create(_ context.Context, sub models.Subscription) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	sub.ID = fmt.Sprintf("sub-%d", m.next)
	sub.IsActive = true
	m.subs[sub.ID] = &sub
	m.order = append(m.order, sub.ID)
	cp := sub
	return &cp, nil
}

func (m *mockSubs) Update(_ context.Context, sub models.Subscription) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return nil, nil
	}
	m.subs[sub.ID] = &sub
	cp := sub
	return &cp, nil
}

func (m *mockSubs) Deactivate(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (m *mockSubs) Cancel(_ context.Context, userID, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.UserID != userID {
		return nil
	}
	s.IsActive = false
	m.reasons[id] = reason
	return nil
}

func (m *mockSubs) AddPayment(_ context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
	return nil
}

// --- Mock account store ---

type mockAccounts struct {
	mu           sync.Mutex
	next         int
	accounts     []*models.Account
	saved        map[string]*oauth2.Token
	disconnected []string
	touched      []string
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{saved: make(map[string]*oauth2.Token)}
}

func (m *mockAccounts) add(userID, email, accessToken string) *models.Account {
	a, _ := m.AddAccount(context.Background(), userID, email, &oauth2.Token{AccessToken: accessToken})
	return a
}

func (m *mockAccounts) ListAccounts(_ context.Context, userID string) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAccounts) GetAccount(_ context.Context, userID, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAccounts) AddAccount(_ context.Context, userID, email string, token *oauth2.Token) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.Email == email {
			a.AccessToken = token.AccessToken
			a.IsActive = true
			cp := *a
			return &cp, nil
		}
	}
	m.next++
	a := &models.Account{
		ID:          fmt.Sprintf("acct-%d", m.next),
		UserID:      userID,
		Email:       email,
		AccessToken: token.AccessToken,
		IsActive:    true,
	}
	m.accounts = append(m.accounts, a)
	cp := *a
	return &cp, nil
}

func (m *mockAccounts) SaveToken(_ context.Context, id string, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[id] = token
	return nil
}

func (m *mockAccounts) MarkDisconnected(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = append(m.disconnected, id)
	for _, a := range m.accounts {
		if a.ID == id {
			a.IsActive = false
		}
	}
	return nil
}

func (m *mockAccounts) TouchScan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockAccounts) RemoveAccount(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts {
		if a.ID == id && a.UserID == userID {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- Mock mailboxes ---

// mockSession serves the same messages for every query.
type mockSession struct {
	messages     []models.RawEmail
	unauthorized bool
	token        *oauth2.Token
}

func (s *mockSession) ListMessageIDs(_ context.Context, _ string, _ int) ([]string, error) {
	if s.unauthorized {
		return nil, gmail.ErrUnauthorized
	}
	ids := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *mockSession) GetMessage(_ context.Context, id string) (*models.RawEmail, error) {
	for _, m := range s.messages {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *mockSession) GetHeaders(ctx context.Context, id string) (*models.RawEmail, error) {
	return s.GetMessage(ctx, id)
}

func (s *mockSession) Token() (*oauth2.Token, error) {
	return s.token, nil
}

type mockMailboxes struct {
	mu         sync.Mutex
	sessions   map[string]*mockSession // keyed by access token
	connection *gmail.Connection
	connectErr error
	connects   int
}

func newMockMailboxes() *mockMailboxes {
	return &mockMailboxes{sessions: make(map[string]*mockSession)}
}

func (m *mockMailboxes) IsConfigured() bool { return true }

func (m *mockMailboxes) AuthURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (m *mockMailboxes) Connect(_ context.Context, _ string) (*gmail.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.connection, nil
}

func (m *mockMailboxes) Open(_ context.Context, token *oauth2.Token) gmail.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token.AccessToken]
	if !ok {
		s = &mockSession{}
	}
	if s.token == nil {
		s.token = token
	}
	return s
}

// --- Mock event publisher ---

type mockEvents struct {
	mu     sync.Mutex
	events []queue.ScanEvent
	err    error
}

func (m *mockEvents) PublishScanCompleted(_ context.Context, e queue.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

// --- Helpers ---

var fixedNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

var errBoom = errors.New("boom")

func plainMessage(id, subject, from, body string) models.RawEmail {
	return models.RawEmail{
		ID:           id,
		Subject:      subject,
		Sender:       from,
		DateReceived: fixedNow.Add(-24 * time.Hour),
		Payload: models.MimePart{
			MimeType: "text/plain",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(body)),
		},
	}
}

func webflowMessage(id string) models.RawEmail {
	return plainMessage(id,
		"Your Webflow plan has been renewed",
		"Webflow <billing@webflow.com>",
		"Thank you for your payment. Your Webflow Site plan subscription of $14/month has been renewed and is active.",
	)
}

func netflixCancellation(id string) models.RawEmail {
	return plainMessage(id,
		"Your Netflix subscription has been cancelled",
		"Netflix <info@account.netflix.com>",
		"We're sorry to see you go. Your subscription cancelled effective today and you will no longer be charged $15.49.",
	)
}
