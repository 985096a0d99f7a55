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

// Package oracle classifies billing email with a hosted language model.
// Each email is one stateless request; the reply is parsed strictly and
// mapped onto the shared ClassificationResult.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subtrack/scanner/internal/catalog"
	"github.com/subtrack/scanner/internal/models"
)

// ErrNotConfigured is returned by Classify when no API key is set.
var ErrNotConfigured = errors.New("oracle: not configured")

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 30 * time.Second

// Config holds the oracle settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxBodyChars int
}

// Classifier asks the oracle for a verdict on each email.
type Classifier struct {
	completer Completer
	catalog   *catalog.Catalog
	system    string
	timeout   time.Duration
	maxBody   int
	now       func() time.Time
}

// New creates a Classifier. Without an API key the classifier reports
// IsConfigured() == false and refuses to classify.
func New(cfg Config, cat *catalog.Catalog) *Classifier {
	var completer Completer
	if cfg.APIKey != "" {
		completer = NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model)
	}
	return NewWithCompleter(completer, cfg, cat)
}

// NewWithCompleter creates a Classifier over an arbitrary Completer. A nil
// completer leaves the classifier unconfigured.
func NewWithCompleter(completer Completer, cfg Config, cat *catalog.Catalog) *Classifier {
	if cat == nil {
		cat = catalog.Default()
	}
	c := &Classifier{
		completer: completer,
		catalog:   cat,
		system:    SystemPrompt(),
		timeout:   cfg.Timeout,
		maxBody:   cfg.MaxBodyChars,
		now:       time.Now,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxBodyChars
	}
	return c
}

// WithClock overrides the clock used for renewal dates.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Name identifies the classifier in logs and scan responses.
func (c *Classifier) Name() string {
	return "oracle"
}

// IsConfigured reports whether the oracle can be called.
func (c *Classifier) IsConfigured() bool {
	return c != nil && c.completer != nil
}

// Classify returns the oracle's verdict for one email. Transport failures,
// timeouts and malformed replies are returned as errors; ErrParse marks
// the latter.
func (c *Classifier) Classify(ctx context.Context, content models.ExtractedContent) (*models.ClassificationResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.completer.Complete(callCtx, c.system, UserPrompt(content, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("classify message %s: %w", content.MessageID, err)
	}

	result, err := toResult(raw, content, c.catalog, c.now())
	if err != nil {
		return nil, fmt.Errorf("classify message %s: %w", content.MessageID, err)
	}

	slog.Info("oracle verdict",
		"message_id", content.MessageID,
		"subscription", result.IsSubscription,
		"kind", result.Kind,
		"service", result.Name(),
		"amount", result.AmountValue(),
		"confidence", result.Confidence,
	)
	return result, nil
}
