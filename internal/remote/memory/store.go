package memory

import (
	"context"
	"errors"
	"sync"

	"puzzlepals/internal/remote"
)

// ErrUnreachable is returned by every operation while the store is offline
var ErrUnreachable = errors.New("remote store unreachable")

// Store is an in-memory document store for tests and offline development
type Store struct {
	mu      sync.RWMutex
	docs    map[string][]byte
	offline bool
	upserts int
}

var _ remote.DocumentStore = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// SetOffline makes every operation fail with ErrUnreachable
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Upserts returns the number of successful upserts
func (s *Store) Upserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

func (s *Store) Upsert(ctx context.Context, collection, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrUnreachable
	}
	s.docs[docKey(collection, key)] = append([]byte(nil), doc...)
	s.upserts++
	return nil
}

func (s *Store) Find(ctx context.Context, collection, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return nil, ErrUnreachable
	}
	doc, ok := s.docs[docKey(collection, key)]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrUnreachable
	}
	delete(s.docs, docKey(collection, key))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return ErrUnreachable
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func docKey(collection, key string) string {
	return collection + "/" + key
}
