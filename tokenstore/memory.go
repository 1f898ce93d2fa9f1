package tokenstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store that honours the same TTLs as the
// persistent backends.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     TTLConfig
	now     func() time.Time
	access  memoryEntry
	refresh memoryEntry
}

func NewMemoryStore(ttl TTLConfig) *MemoryStore {
	return &MemoryStore{
		ttl: ttl.withDefaults(),
		now: time.Now,
	}
}

func (s *MemoryStore) Set(_ context.Context, tokens Tokens) error {
	if tokens.Empty() {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.access = memoryEntry{value: tokens.Access, expiresAt: now.Add(s.ttl.AccessTTL)}
	s.refresh = memoryEntry{}
	if tokens.Refresh != "" {
		s.refresh = memoryEntry{value: tokens.Refresh, expiresAt: now.Add(s.ttl.RefreshTTL)}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out Tokens
	if s.access.value != "" && now.Before(s.access.expiresAt) {
		out.Access = s.access.value
	}
	if s.refresh.value != "" && now.Before(s.refresh.expiresAt) {
		out.Refresh = s.refresh.value
	}
	return out, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.access = memoryEntry{}
	s.refresh = memoryEntry{}
	s.mu.Unlock()
	return nil
}
