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

// Package gmail lists and fetches candidate billing messages from the
// Gmail REST API and manages the OAuth connection for a mailbox.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/subtrack/scanner/internal/extract"
	"github.com/subtrack/scanner/internal/models"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Gmail API root for the authenticated user.
const DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"

// ErrUnauthorized reports that the mailbox token was rejected.
var ErrUnauthorized = errors.New("gmail: unauthorized")

// Client calls the Gmail API with an authorized HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Gmail client. httpClient must attach credentials,
// typically one returned by Connector.HTTPClient.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// listResponse is one page of users.messages.list.
type listResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

// ListMessageIDs returns up to limit message IDs matching query, newest first.
func (c *Client) ListMessageIDs(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))

	resp, err := c.get(ctx, "/messages?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode messages list: %w", err)
	}

	ids := make([]string, 0, len(page.Messages))
	for _, m := range page.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GetMessage fetches a full message. It returns nil, nil when the message
// no longer exists.
func (c *Client) GetMessage(ctx context.Context, id string) (*models.RawEmail, error) {
	return c.fetch(ctx, id, url.Values{"format": {"full"}})
}

// GetHeaders fetches only the Subject, From and Date headers of a message.
// It returns nil, nil when the message no longer exists.
func (c *Client) GetHeaders(ctx context.Context, id string) (*models.RawEmail, error) {
	return c.fetch(ctx, id, url.Values{
		"format":          {"metadata"},
		"metadataHeaders": {"Subject", "From", "Date"},
	})
}

func (c *Client) fetch(ctx context.Context, id string, params url.Values) (*models.RawEmail, error) {
	resp, err := c.get(ctx, "/messages/"+url.PathEscape(id)+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("message not found (may have been deleted)", "message_id", id)
		return nil, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}

	msg, err := extract.ParseGmailMessage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return msg, nil
}

// Profile returns the mailbox address.
func (c *Client) Profile(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "/profile")
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}

	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}
	return profile.EmailAddress, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A refresh token the provider refuses surfaces as a transport error.
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gmail API returned HTTP %d: %s", resp.StatusCode, body)
	}
	return nil
}
