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

// Package extract flattens a fetched message's MIME tree into the plain
// text the classifiers score.
package extract

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/subtrack/scanner/internal/models"
)

// Extract returns the classifier-ready content of raw. All text/plain
// segments are concatenated in tree order; when the tree has none, the
// text/html segments are concatenated and stripped instead. Parts that
// fail to decode are skipped with a warning.
func Extract(raw models.RawEmail) models.ExtractedContent {
	var plain, html []string
	collect(raw.ID, raw.Payload, &plain, &html)

	text := strings.TrimSpace(strings.Join(plain, "\n"))
	if len(plain) == 0 && len(html) > 0 {
		text = StripHTML(strings.Join(html, " "))
	}

	return models.ExtractedContent{
		MessageID:     raw.ID,
		Subject:       raw.Subject,
		Sender:        raw.Sender,
		DateReceived:  raw.DateReceived,
		PlainText:     text,
		ContentLength: utf8.RuneCountInString(text),
	}
}

func collect(messageID string, part models.MimePart, plain, html *[]string) {
	mime := strings.ToLower(strings.TrimSpace(part.MimeType))

	if part.Data != "" && part.Filename == "" {
		switch {
		case strings.HasPrefix(mime, "text/plain"):
			if s, ok := decodePart(messageID, mime, part.Data); ok {
				*plain = append(*plain, s)
			}
		case strings.HasPrefix(mime, "text/html"):
			if s, ok := decodePart(messageID, mime, part.Data); ok {
				*html = append(*html, s)
			}
		}
	}

	for _, child := range part.Parts {
		collect(messageID, child, plain, html)
	}
}

func decodePart(messageID, mime, data string) (string, bool) {
	s, err := DecodeData(data)
	if err != nil {
		slog.Warn("skipping undecodable message part",
			"message_id", messageID,
			"mime_type", mime,
			"error", err,
		)
		return "", false
	}
	return s, true
}

// DecodeData decodes a part body. Gmail sends URL-safe base64, usually
// without padding, but standard-alphabet and padded bodies also occur.
func DecodeData(data string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, data)
	if cleaned == "" {
		return "", nil
	}

	unpadded := strings.TrimRight(cleaned, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(unpadded)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(unpadded)
	}
	if err != nil {
		return "", fmt.Errorf("decode base64 body: %w", err)
	}
	return string(decoded), nil
}
