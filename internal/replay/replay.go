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

// Package replay rejects reuse of OAuth authorization codes within a
// bounded recent window.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCapacity is how many recent codes the in-memory guard holds.
	DefaultCapacity = 100

	// DefaultTTL is how long a claimed code is remembered.
	DefaultTTL = 10 * time.Minute

	// keyPrefix namespaces guard keys in Redis.
	keyPrefix = "subtrack:oauth-code:"

	codePrefixLen = 10
)

// Guard records claimed keys. Claim returns false when the key was already
// claimed and has not expired or been released.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key builds the guard key for a user's authorization code.
func Key(userID, code string) string {
	if len(code) > codePrefixLen {
		code = code[:codePrefixLen]
	}
	return userID + "-" + code
}

// LRUGuard is a process-local Guard with bounded size and expiry.
type LRUGuard struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, struct{}]
}

// NewLRUGuard creates an in-memory guard. Non-positive arguments select
// the defaults.
func NewLRUGuard(capacity int, ttl time.Duration) *LRUGuard {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUGuard{cache: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

// Claim marks key as used.
func (g *LRUGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.cache.Get(key); ok {
		return false, nil
	}
	g.cache.Add(key, struct{}{})
	return true, nil
}

// Release forgets key so it can be claimed again.
func (g *LRUGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.Remove(key)
	return nil
}

// Len reports how many keys are currently held.
func (g *LRUGuard) Len() int {
	return g.cache.Len()
}

// RedisGuard shares claimed keys across instances with SET NX and a TTL.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard creates a guard backed by Redis.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// Claim sets the key only if it does not exist.
func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	set, err := g.rdb.SetNX(ctx, keyPrefix+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay SETNX: %w", err)
	}
	return set, nil
}

// Release deletes the key.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("replay DEL: %w", err)
	}
	return nil
}
