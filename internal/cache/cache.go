// Package cache retains finished runs per client session so their tables can
// be exported later. Entries expire after a TTL and the least recently used
// entry is evicted when the cache is full.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/render"
)

// Entry is one retained run.
type Entry struct {
	Result    *pipeline.Result
	Options   render.Options
	CreatedAt time.Time
}

// Store is a session-scoped run cache. It is safe for concurrent use.
type Store struct {
	lru *expirable.LRU[string, *Entry]
}

// New creates a Store holding at most size entries for ttl each.
// A size of zero or less means 1.
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 1
	}
	return &Store{lru: expirable.NewLRU[string, *Entry](size, nil, ttl)}
}

// Put stores an entry under the session and the entry's run ID.
func (s *Store) Put(session string, entry *Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.lru.Add(key(session, entry.Result.RunID), entry)
}

// Get returns the run stored by session. Runs of other sessions are never
// returned.
func (s *Store) Get(session, runID string) (*Entry, bool) {
	return s.lru.Get(key(session, runID))
}

// Remove drops a run.
func (s *Store) Remove(session, runID string) {
	s.lru.Remove(key(session, runID))
}

// Len returns the number of retained runs.
func (s *Store) Len() int {
	return s.lru.Len()
}

func key(session, runID string) string {
	return session + "\x00" + runID
}
