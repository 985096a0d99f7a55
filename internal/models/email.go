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

// Package models defines the data structures shared across the scanner service.
package models

import "time"

// MimePart is one node of a message's MIME tree. Data holds the part body
// as base64 or base64url text, exactly as the mail provider returned it.
type MimePart struct {
	MimeType string     `json:"mime_type"`
	Filename string     `json:"filename,omitempty"`
	Data     string     `json:"data,omitempty"`
	Parts    []MimePart `json:"parts,omitempty"`
}

// RawEmail is a fetched message before any content extraction.
type RawEmail struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Sender       string    `json:"sender"`
	DateReceived time.Time `json:"date_received"`
	Payload      MimePart  `json:"payload"`
}

// Ref returns the provenance record for this message.
func (e RawEmail) Ref() EmailRef {
	return EmailRef{
		MessageID: e.ID,
		Subject:   e.Subject,
		Sender:    e.Sender,
		Date:      e.DateReceived,
	}
}

// ExtractedContent is the flattened, classifier-ready view of a message.
type ExtractedContent struct {
	MessageID     string    `json:"message_id"`
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	DateReceived  time.Time `json:"date_received"`
	PlainText     string    `json:"plain_text"`
	ContentLength int       `json:"content_length"`
}

// Ref returns the provenance record for the extracted message.
func (c ExtractedContent) Ref() EmailRef {
	return EmailRef{
		MessageID: c.MessageID,
		Subject:   c.Subject,
		Sender:    c.Sender,
		Date:      c.DateReceived,
	}
}

// EmailRef identifies the message a classification came from.
type EmailRef struct {
	MessageID string    `json:"message_id"`
	Subject   string    `json:"subject"`
	Sender    string    `json:"sender"`
	Date      time.Time `json:"date"`
}
