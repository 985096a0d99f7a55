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
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/subtrack/scanner/internal/models"
)

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestExtract_ConcatenatesPlainTextInTreeOrder(t *testing.T) {
	raw := models.RawEmail{
		ID:      "m1",
		Subject: "Receipt",
		Sender:  "Shop <billing@shop.example>",
		Payload: models.MimePart{
			MimeType: "multipart/mixed",
			Parts: []models.MimePart{
				{
					MimeType: "multipart/alternative",
					Parts: []models.MimePart{
						{MimeType: "text/plain", Data: b64url("first segment")},
						{MimeType: "text/html", Data: b64url("<p>ignored html</p>")},
					},
				},
				{MimeType: "text/plain", Data: b64url("second segment")},
			},
		},
	}

	got := Extract(raw)
	if got.PlainText != "first segment\nsecond segment" {
		t.Errorf("PlainText = %q", got.PlainText)
	}
	if got.ContentLength != len("first segment\nsecond segment") {
		t.Errorf("ContentLength = %d", got.ContentLength)
	}
	if got.Subject != "Receipt" || got.Sender != raw.Sender || got.MessageID != "m1" {
		t.Errorf("metadata not carried over: %+v", got)
	}
}

func TestExtract_FallsBackToStrippedHTML(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style></head>
<body><p>Your&nbsp;plan &amp; billing</p><script>track()</script>
<div>Total: &lt;$14&gt; &quot;ok&quot; it&#39;s</div></body></html>`

	raw := models.RawEmail{
		Payload: models.MimePart{
			MimeType: "multipart/alternative",
			Parts: []models.MimePart{
				{MimeType: "text/html", Data: b64url(html)},
			},
		},
	}

	got := Extract(raw).PlainText
	want := `Your plan & billing Total: <$14> "ok" it's`
	if got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestExtract_SkipsMalformedPart(t *testing.T) {
	raw := models.RawEmail{
		ID: "m2",
		Payload: models.MimePart{
			MimeType: "multipart/mixed",
			Parts: []models.MimePart{
				{MimeType: "text/plain", Data: "!!!not base64!!!"},
				{MimeType: "text/plain", Data: b64url("still here")},
			},
		},
	}

	if got := Extract(raw).PlainText; got != "still here" {
		t.Errorf("PlainText = %q, want %q", got, "still here")
	}
}

func TestExtract_EmptyAndMissingParts(t *testing.T) {
	tests := []struct {
		name    string
		payload models.MimePart
	}{
		{"zero payload", models.MimePart{}},
		{"empty data", models.MimePart{MimeType: "text/plain"}},
		{"attachment only", models.MimePart{
			MimeType: "multipart/mixed",
			Parts: []models.MimePart{
				{MimeType: "text/plain", Filename: "invoice.txt", Data: b64url("attached")},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(models.RawEmail{Payload: tt.payload})
			if got.PlainText != "" || got.ContentLength != 0 {
				t.Errorf("got %+v, want empty content", got)
			}
		})
	}
}

func TestExtract_DeeplyNested(t *testing.T) {
	leaf := models.MimePart{MimeType: "text/plain", Data: b64url("deep")}
	for i := 0; i < 50; i++ {
		leaf = models.MimePart{MimeType: "multipart/mixed", Parts: []models.MimePart{leaf}}
	}
	if got := Extract(models.RawEmail{Payload: leaf}).PlainText; got != "deep" {
		t.Errorf("PlainText = %q, want deep", got)
	}
}

func TestDecodeData(t *testing.T) {
	text := "Thanks for your payment?>"
	tests := []struct {
		name string
		data string
	}{
		{"raw url", base64.RawURLEncoding.EncodeToString([]byte(text))},
		{"padded url", base64.URLEncoding.EncodeToString([]byte(text))},
		{"standard", base64.StdEncoding.EncodeToString([]byte(text))},
		{"wrapped", wrap(base64.StdEncoding.EncodeToString([]byte(text)), 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeData(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != text {
				t.Errorf("DecodeData = %q, want %q", got, text)
			}
		})
	}

	if _, err := DecodeData("%%%"); err == nil {
		t.Error("expected error for invalid data")
	}
}

func wrap(s string, n int) string {
	var b strings.Builder
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
		b.WriteString("\r\n")
	}
	return b.String()
}

func TestParseGmailMessage(t *testing.T) {
	body := `{
		"id": "18c9f",
		"threadId": "18c9f",
		"internalDate": "1767225600000",
		"payload": {
			"mimeType": "multipart/alternative",
			"headers": [
				{"name": "Subject", "value": "Your Webflow plan has been renewed"},
				{"name": "From", "value": "Webflow <billing@webflow.com>"},
				{"name": "Date", "value": "Thu, 1 Jan 2026 10:00:00 +0000"}
			],
			"body": {"size": 0},
			"parts": [
				{"mimeType": "text/plain", "body": {"size": 5, "data": "` + b64url("hello") + `"}}
			]
		}
	}`

	raw, err := ParseGmailMessage(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.ID != "18c9f" {
		t.Errorf("ID = %q", raw.ID)
	}
	if raw.Subject != "Your Webflow plan has been renewed" {
		t.Errorf("Subject = %q", raw.Subject)
	}
	if raw.Sender != "Webflow <billing@webflow.com>" {
		t.Errorf("Sender = %q", raw.Sender)
	}
	if want := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC); !raw.DateReceived.Equal(want) {
		t.Errorf("DateReceived = %s, want %s", raw.DateReceived, want)
	}
	if got := Extract(*raw).PlainText; got != "hello" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestParseGmailMessage_Errors(t *testing.T) {
	for _, body := range []string{"not json", `{"payload": {}}`} {
		if _, err := ParseGmailMessage(strings.NewReader(body)); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

func TestMessageDate_Fallbacks(t *testing.T) {
	if got := messageDate("", "1767225600000"); !got.Equal(time.UnixMilli(1767225600000)) {
		t.Errorf("internalDate fallback = %s", got)
	}
	if got := messageDate("garbage", ""); !got.IsZero() {
		t.Errorf("want zero time, got %s", got)
	}
	got := messageDate("Thu, 1 Jan 2026 10:00:00 +0000 (UTC)", "")
	if want := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("comment date = %s, want %s", got, want)
	}
}
