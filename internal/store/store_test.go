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

package store

import (
	"testing"
	"time"

	"github.com/subtrack/scanner/internal/models"
	"golang.org/x/oauth2"
)

func TestLikeEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Netflix", "Netflix"},
		{"100%", `100\%`},
		{"my_app", `my\_app`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := likeEscape(tt.in); got != tt.want {
			t.Errorf("likeEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToken(t *testing.T) {
	exp := time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC)
	tok := Token(models.Account{AccessToken: "at", RefreshToken: "rt", TokenExpiry: exp})
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" || !tok.Expiry.Equal(exp) {
		t.Errorf("Token() = %+v", tok)
	}
	if tok.Type() != "Bearer" {
		t.Errorf("Type() = %q", tok.Type())
	}
}

func TestExpiry(t *testing.T) {
	if got := expiry(&oauth2.Token{}); got != nil {
		t.Errorf("expiry(zero) = %v, want nil", got)
	}
	exp := time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC)
	if got := expiry(&oauth2.Token{Expiry: exp}); got == nil || !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
}
