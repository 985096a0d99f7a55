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
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ReadonlyScope is the only Gmail scope the scanner requests.
const ReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// ErrNotConnected is returned when OAuth client credentials are missing.
var ErrNotConnected = errors.New("gmail: oauth client not configured")

// OAuthConfig holds the Google OAuth client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides the Google endpoint, for tests.
	Endpoint *oauth2.Endpoint
	// BaseURL overrides the Gmail API root, for tests.
	BaseURL string
}

// Connector turns authorization codes into mailbox clients.
type Connector struct {
	oauth   *oauth2.Config
	baseURL string
}

// NewConnector creates a connector for the given OAuth client.
func NewConnector(cfg OAuthConfig) *Connector {
	endpoint := endpoints.Google
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{ReadonlyScope},
			Endpoint:     endpoint,
		},
		baseURL: cfg.BaseURL,
	}
}

// IsConfigured reports whether client credentials are present.
func (c *Connector) IsConfigured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google issue a refresh token.
func (c *Connector) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Connection is the result of a successful code exchange.
type Connection struct {
	Email string
	Token *oauth2.Token
}

// Connect exchanges code for tokens and resolves the mailbox address.
func (c *Connector) Connect(ctx context.Context, code string) (*Connection, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConnected
	}
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	email, err := c.Client(ctx, token).Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve mailbox: %w", err)
	}
	return &Connection{Email: email, Token: token}, nil
}

// HTTPClient returns a client that authorizes requests with token and
// refreshes it when it expires.
func (c *Connector) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return c.oauth.Client(ctx, token)
}

// Client returns a Gmail API client for token.
func (c *Connector) Client(ctx context.Context, token *oauth2.Token) *Client {
	return NewClient(c.HTTPClient(ctx, token), c.baseURL)
}

// Session is an authorized mailbox whose token may be refreshed while in
// use. Token returns the current token so callers can persist it.
type Session interface {
	Mailbox
	Token() (*oauth2.Token, error)
}

type session struct {
	*Client
	oauth2.TokenSource
}

// Open returns a session for a stored token.
func (c *Connector) Open(ctx context.Context, token *oauth2.Token) Session {
	ts := c.oauth.TokenSource(ctx, token)
	return session{
		Client:      NewClient(oauth2.NewClient(ctx, ts), c.baseURL),
		TokenSource: ts,
	}
}
