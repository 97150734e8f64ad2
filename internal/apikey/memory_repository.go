package apikey

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Key
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Key)}
}

func (r *memoryRepository) Create(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[key.ID]; exists {
		return errors.New("api key exists")
	}
	r.storage[key.ID] = key
	return nil
}

func (r *memoryRepository) Get(_ context.Context, userID, keyID string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.storage[keyID]
	if !ok || key.UserID != userID {
		return Key{}, ErrNotFound
	}
	return key, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Key
	for _, key := range r.storage {
		if key.UserID == userID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (r *memoryRepository) CountActive(_ context.Context, userID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int
	for _, key := range r.storage {
		if key.UserID == userID && !key.Revoked && key.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) FindActiveByPrefix(_ context.Context, prefix string, now time.Time) ([]Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Key
	for _, key := range r.storage {
		if key.Prefix == prefix && !key.Revoked && key.ExpiresAt.After(now) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (r *memoryRepository) MarkRevoked(_ context.Context, userID, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.storage[keyID]
	if !ok || key.UserID != userID {
		return ErrNotFound
	}
	key.Revoked = true
	r.storage[keyID] = key
	return nil
}

func (r *memoryRepository) RevokeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, key := range r.storage {
		if !key.Revoked && key.ExpiresAt.Before(now) {
			key.Revoked = true
			r.storage[id] = key
			n++
		}
	}
	return n, nil
}
