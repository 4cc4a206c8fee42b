package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/cidali/bookstore/entitlements"
)

// TokenStore is an in-memory implementation of entitlements.Store.
// Expired records are evicted lazily on Validate; Sweep exists for a
// scheduled pass so unredeemed tokens do not accumulate forever.
type TokenStore struct {
	mu   sync.Mutex
	data map[string]record
	now  func() time.Time
}

type record struct {
	contentID string
	expiresAt time.Time
}

// New creates an empty in-memory token store.
func New() *TokenStore {
	return &TokenStore{data: make(map[string]record), now: time.Now}
}

func (s *TokenStore) Issue(ctx context.Context, contentID string, ttl time.Duration) (string, error) {
	_ = ctx
	id, err := entitlements.NewTokenID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = record{contentID: contentID, expiresAt: s.now().Add(ttl)}
	return id, nil
}

func (s *TokenStore) Validate(ctx context.Context, tokenID, contentID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[tokenID]
	if !ok {
		return entitlements.ErrNotFound
	}
	if !s.now().Before(rec.expiresAt) {
		delete(s.data, tokenID)
		return entitlements.ErrExpired
	}
	if rec.contentID != contentID {
		return entitlements.ErrContentMismatch
	}
	return nil
}

// Sweep removes all expired records.
func (s *TokenStore) Sweep(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, rec := range s.data {
		if !now.Before(rec.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live and not-yet-swept records.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
