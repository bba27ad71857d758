// Package cache memoizes resolved metadata by normalized citation key.
// Concurrent resolutions of one key share a single underlying call.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache store closed")

// Entry is one cached record.
type Entry struct {
	Key       string             `json:"key"`
	Metadata  reference.Metadata `json:"metadata"`
	Sealed    []byte             `json:"sealed,omitempty"` // set by SealedStore in place of Metadata
	StoredAt  time.Time          `json:"stored_at"`
	ExpiresAt time.Time          `json:"expires_at,omitempty"` // zero means never
}

// Expired reports whether e has expired at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store persists entries. Get reports ok=false for missing or expired
// keys. A ttl of zero or less never expires.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry, ttl time.Duration) error
}

// Stats summarizes a store's contents.
type Stats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}

// Maintainer is implemented by stores that can report on and prune
// their contents.
type Maintainer interface {
	Stats(ctx context.Context) (Stats, error)
	Purge(ctx context.Context, all bool) (int, error)
}

// stamp fills the bookkeeping fields of e for a write at now.
func stamp(key string, e Entry, ttl time.Duration, now time.Time) Entry {
	e.Key = key
	e.StoredAt = now
	e.ExpiresAt = time.Time{}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.Expired(s.now()) {
		return Entry{}, false, nil
	}
	e.Metadata = e.Metadata.Clone()
	return e, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, e Entry, ttl time.Duration) error {
	e.Metadata = e.Metadata.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = stamp(key, e, ttl, s.now())
	return nil
}

// Stats counts live and expired entries.
func (s *MemoryStore) Stats(context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	st := Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		if e.Expired(now) {
			st.Expired++
		}
	}
	return st, nil
}

// Purge removes expired entries, or every entry when all is true.
func (s *MemoryStore) Purge(_ context.Context, all bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if all || e.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
