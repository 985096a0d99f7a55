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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the LLM classifier. It is enabled iff APIKey is set.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxBodyChars int
}

// GoogleConfig holds the OAuth client used to connect Gmail accounts.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// PacingConfig spaces out calls to the remote classifier.
type PacingConfig struct {
	GroupSize  int
	ItemDelay  time.Duration
	GroupDelay time.Duration
}

// ReplayConfig selects the authorization code replay guard.
type ReplayConfig struct {
	Backend  string // "memory" or "redis"
	Capacity int
	TTL      time.Duration
}

// GmailConfig bounds how much of a mailbox one scan reads.
type GmailConfig struct {
	MaxPerQuery int
	MaxMessages int
	PreFilter   bool
	MaxFiltered int
	FetchDelay  time.Duration
}

// Config holds all configuration for the scanner service.
type Config struct {
	DatabaseURL string

	// Redis
	RedisURL  string
	ScanQueue string

	OpenAI OpenAIConfig
	Google GoogleConfig
	Pacing PacingConfig
	Replay ReplayConfig
	Gmail  GmailConfig

	MaxAccounts      int
	MembershipAmount float64

	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			ScanResults string `yaml:"scan_results"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	OpenAI struct {
		APIKey       string `yaml:"api_key"`
		BaseURL      string `yaml:"base_url"`
		Model        string `yaml:"model"`
		Timeout      string `yaml:"timeout"`
		MaxBodyChars int    `yaml:"max_body_chars"`
	} `yaml:"openai"`
	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`
	Pacing struct {
		GroupSize  int    `yaml:"group_size"`
		ItemDelay  string `yaml:"item_delay"`
		GroupDelay string `yaml:"group_delay"`
	} `yaml:"pacing"`
	Replay struct {
		Backend  string `yaml:"backend"`
		Capacity int    `yaml:"capacity"`
		TTL      string `yaml:"ttl"`
	} `yaml:"replay"`
	Gmail struct {
		MaxPerQuery int    `yaml:"max_per_query"`
		MaxMessages int    `yaml:"max_messages"`
		PreFilter   *bool  `yaml:"prefilter"`
		MaxFiltered int    `yaml:"max_filtered"`
		FetchDelay  string `yaml:"fetch_delay"`
	} `yaml:"gmail"`
	MaxAccounts      int     `yaml:"max_accounts"`
	MembershipAmount float64 `yaml:"membership_amount"`
	Port             int     `yaml:"port"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables. A missing file is not an error: every setting has
// an environment variable and a default.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL: firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/subtrack?sslmode=disable")),
		RedisURL:    firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		ScanQueue:   firstNonEmpty(raw.Redis.Queues.ScanResults, envOrDefault("SCAN_QUEUE", "scan_results")),
		OpenAI: OpenAIConfig{
			APIKey:       firstNonEmpty(raw.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY")),
			BaseURL:      firstNonEmpty(raw.OpenAI.BaseURL, os.Getenv("OPENAI_BASE_URL")),
			Model:        firstNonEmpty(raw.OpenAI.Model, envOrDefault("OPENAI_MODEL", "gpt-4o-mini")),
			MaxBodyChars: firstPositive(raw.OpenAI.MaxBodyChars, envOrDefaultInt("OPENAI_MAX_BODY_CHARS", 6000)),
		},
		Google: GoogleConfig{
			ClientID:     firstNonEmpty(raw.Google.ClientID, os.Getenv("GOOGLE_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Google.ClientSecret, os.Getenv("GOOGLE_CLIENT_SECRET")),
			RedirectURL:  firstNonEmpty(raw.Google.RedirectURL, envOrDefault("GOOGLE_REDIRECT_URI", "http://localhost:3000/auth/callback")),
		},
		Pacing: PacingConfig{
			GroupSize: firstPositive(raw.Pacing.GroupSize, envOrDefaultInt("PACING_GROUP_SIZE", 3)),
		},
		Replay: ReplayConfig{
			Backend:  strings.ToLower(firstNonEmpty(raw.Replay.Backend, envOrDefault("REPLAY_BACKEND", "memory"))),
			Capacity: firstPositive(raw.Replay.Capacity, envOrDefaultInt("REPLAY_CAPACITY", 100)),
		},
		Gmail: GmailConfig{
			MaxPerQuery: firstPositive(raw.Gmail.MaxPerQuery, envOrDefaultInt("GMAIL_MAX_PER_QUERY", 50)),
			MaxMessages: firstPositive(raw.Gmail.MaxMessages, envOrDefaultInt("GMAIL_MAX_MESSAGES", 100)),
			PreFilter:   envOrDefaultBool("GMAIL_PREFILTER", false),
			MaxFiltered: firstPositive(raw.Gmail.MaxFiltered, envOrDefaultInt("GMAIL_MAX_FILTERED", 50)),
		},
		MaxAccounts:      firstPositive(raw.MaxAccounts, envOrDefaultInt("MAX_GMAIL_ACCOUNTS", 3)),
		MembershipAmount: raw.MembershipAmount,
		Port:             firstPositive(raw.Port, envOrDefaultInt("PORT", 8080)),
	}
	if raw.Gmail.PreFilter != nil {
		cfg.Gmail.PreFilter = *raw.Gmail.PreFilter
	}

	durations := []struct {
		name     string
		yaml     string
		env      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"openai.timeout", raw.OpenAI.Timeout, "OPENAI_TIMEOUT", 30 * time.Second, &cfg.OpenAI.Timeout},
		{"pacing.item_delay", raw.Pacing.ItemDelay, "PACING_ITEM_DELAY", 500 * time.Millisecond, &cfg.Pacing.ItemDelay},
		{"pacing.group_delay", raw.Pacing.GroupDelay, "PACING_GROUP_DELAY", 2 * time.Second, &cfg.Pacing.GroupDelay},
		{"replay.ttl", raw.Replay.TTL, "REPLAY_TTL", 10 * time.Minute, &cfg.Replay.TTL},
		{"gmail.fetch_delay", raw.Gmail.FetchDelay, "GMAIL_FETCH_DELAY", 0, &cfg.Gmail.FetchDelay},
	}
	for _, d := range durations {
		*d.dst = envOrDefaultDuration(d.env, d.fallback)
		if d.yaml == "" {
			continue
		}
		v, err := time.ParseDuration(d.yaml)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if cfg.Replay.Backend != "memory" && cfg.Replay.Backend != "redis" {
		return nil, fmt.Errorf("unknown replay backend %q (want memory or redis)", cfg.Replay.Backend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
