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

package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/subtrack/scanner/internal/models"
)

// gmailMessage represents the relevant fields of a Gmail API
// users.messages.get response in format=full.
type gmailMessage struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"threadId"`
	InternalDate string    `json:"internalDate"`
	Payload      gmailPart `json:"payload"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Size int    `json:"size"`
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

// ParseGmailMessage converts a Gmail API message into a RawEmail.
func ParseGmailMessage(body io.Reader) (*models.RawEmail, error) {
	var msg gmailMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode gmail message: %w", err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("decode gmail message: missing id")
	}

	headers := make(map[string]string, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}

	return &models.RawEmail{
		ID:           msg.ID,
		Subject:      headers["subject"],
		Sender:       headers["from"],
		DateReceived: messageDate(headers["date"], msg.InternalDate),
		Payload:      convertPart(msg.Payload),
	}, nil
}

func convertPart(p gmailPart) models.MimePart {
	out := models.MimePart{
		MimeType: p.MimeType,
		Filename: p.Filename,
		Data:     p.Body.Data,
	}
	for _, child := range p.Parts {
		out.Parts = append(out.Parts, convertPart(child))
	}
	return out
}

var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC3339,
}

// messageDate parses the Date header, falling back to Gmail's internalDate
// (epoch milliseconds). A message with neither gets the zero time.
func messageDate(header, internalDate string) time.Time {
	header = strings.TrimSpace(header)
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t
		}
		// Some senders append a zone comment such as "(UTC)".
		if i := strings.Index(header, " ("); i > 0 {
			header = header[:i]
		}
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, header); err == nil {
				return t
			}
		}
	}
	if ms, err := strconv.ParseInt(internalDate, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
