// Package otp keeps pending OTP challenges keyed by recipient session id.
package otp

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/securelink/internal/server/models"
)

// Store holds at most one pending challenge per session.
type Store interface {
	// Put replaces any pending challenge for sessionID.
	Put(ctx context.Context, sessionID string, c models.OTPChallenge) error
	// Get returns the pending challenge without consuming it.
	Get(ctx context.Context, sessionID string) (models.OTPChallenge, bool, error)
	// Delete discards the pending challenge, if any.
	Delete(ctx context.Context, sessionID string) error
	// Consume deletes the challenge only if it still equals c, reporting
	// whether it did. Two verifications racing on one code cannot both win.
	Consume(ctx context.Context, sessionID string, c models.OTPChallenge) (bool, error)
	// DeleteExpired drops every challenge whose deadline is before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore is an in-process Store. It is safe for concurrent use; each
// call is atomic and concurrent Puts for one session resolve to the last one.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]models.OTPChallenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]models.OTPChallenge)}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, c models.OTPChallenge) error {
	s.mu.Lock()
	s.items[sessionID] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (models.OTPChallenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[sessionID]
	return c, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.items, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, sessionID string, c models.OTPChallenge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[sessionID]
	if !ok || cur != c {
		return false, nil
	}
	delete(s.items, sessionID)
	return true, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.items {
		if c.Expired(now) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored challenges.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
