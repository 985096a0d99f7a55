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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConnector_AuthURL(t *testing.T) {
	c := NewConnector(OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/callback",
	})

	u, err := url.Parse(c.AuthURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q", u.Host)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":    "client-1",
		"state":        "state-xyz",
		"access_type":  "offline",
		"prompt":       "consent",
		"scope":        ReadonlyScope,
		"redirect_uri": "http://localhost:3000/callback",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestConnector_NotConfigured(t *testing.T) {
	c := NewConnector(OAuthConfig{})
	if c.IsConfigured() {
		t.Fatal("IsConfigured() = true without credentials")
	}
	if _, err := c.Connect(context.Background(), "code"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestConnector_Connect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.Form.Get("code"); got != "auth-code" {
			t.Errorf("code = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/gmail/profile", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"emailAddress":"jane@example.com"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewConnector(OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		BaseURL:      srv.URL + "/gmail",
	})

	conn, err := c.Connect(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.Email != "jane@example.com" {
		t.Errorf("Email = %q", conn.Email)
	}
	if conn.Token.AccessToken != "at-1" || conn.Token.RefreshToken != "rt-1" {
		t.Errorf("token = %+v", conn.Token)
	}
}

func TestConnector_ConnectExchangeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewConnector(OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		Endpoint:     &oauth2.Endpoint{TokenURL: srv.URL},
	})

	_, err := c.Connect(context.Background(), "reused")
	if err == nil || !strings.Contains(err.Error(), "exchange code") {
		t.Errorf("err = %v, want exchange error", err)
	}
}

func TestConnector_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer stored" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"messages":[{"id":"x"}]}`))
	}))
	defer srv.Close()

	c := NewConnector(OAuthConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL})
	token := &oauth2.Token{AccessToken: "stored", Expiry: time.Now().Add(time.Hour)}
	session := c.Open(context.Background(), token)

	ids, err := session.ListMessageIDs(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("ListMessageIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("ids = %v", ids)
	}
	current, err := session.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if current.AccessToken != "stored" {
		t.Errorf("AccessToken = %q, want unchanged", current.AccessToken)
	}
}
