// Package snapshot holds the baseline listing set that each detection cycle
// diffs against.
package snapshot

import (
	"context"
	"sync"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// Store keeps the listing set observed by the last successful detection cycle.
type Store interface {
	// Get returns the stored snapshot keyed by listing id. The bool is false
	// when no snapshot has been written yet.
	Get(ctx context.Context) (map[string]listing.Listing, bool, error)
	// Replace swaps the whole snapshot for listings.
	Replace(ctx context.Context, listings []listing.Listing) error
}

// index keys listings by id. A later duplicate id wins.
func index(listings []listing.Listing) map[string]listing.Listing {
	m := make(map[string]listing.Listing, len(listings))
	for _, l := range listings {
		m[l.ID] = l
	}
	return m
}

// MemoryStore is a process-local Store. It does not survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]listing.Listing
	present  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns a copy of the stored snapshot.
func (s *MemoryStore) Get(_ context.Context) (map[string]listing.Listing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.present {
		return nil, false, nil
	}
	out := make(map[string]listing.Listing, len(s.listings))
	for id, l := range s.listings {
		out[id] = l
	}
	return out, true, nil
}

// Replace stores listings as the new snapshot.
func (s *MemoryStore) Replace(_ context.Context, listings []listing.Listing) error {
	m := index(listings)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = m
	s.present = true
	return nil
}
