package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNoValue is returned by Storage.Get when the key is absent.
var ErrNoValue = errors.New("session: no value")

// Storage is the key/value area owned by one client scope.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Replace writes value only while key still holds old and reports whether
	// the write happened.
	Replace(ctx context.Context, key, old, value string) (bool, error)
}

// Backend hands out per-scope storage.
type Backend interface {
	Storage(scope string) Storage
	// Scopes lists the scopes currently holding a session record.
	Scopes(ctx context.Context) ([]string, error)
	// Drop removes every key of scope.
	Drop(ctx context.Context, scope string) error
}

// MemoryBackend keeps every scope in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	scopes map[string]map[string]string
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{scopes: make(map[string]map[string]string)}
}

// Storage returns the storage for scope.
func (b *MemoryBackend) Storage(scope string) Storage {
	return memoryStorage{backend: b, scope: scope}
}

// Scopes lists scopes holding a session record in lexical order.
func (b *MemoryBackend) Scopes(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scopes := make([]string, 0, len(b.scopes))
	for scope, values := range b.scopes {
		if _, ok := values[SessionKey]; ok {
			scopes = append(scopes, scope)
		}
	}
	sort.Strings(scopes)
	return scopes, nil
}

// Drop forgets scope entirely.
func (b *MemoryBackend) Drop(ctx context.Context, scope string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scopes, scope)
	return nil
}

type memoryStorage struct {
	backend *MemoryBackend
	scope   string
}

func (s memoryStorage) Get(ctx context.Context, key string) (string, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	value, ok := s.backend.scopes[s.scope][key]
	if !ok {
		return "", ErrNoValue
	}
	return value, nil
}

func (s memoryStorage) Set(ctx context.Context, key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	values, ok := s.backend.scopes[s.scope]
	if !ok {
		values = make(map[string]string)
		s.backend.scopes[s.scope] = values
	}
	values[key] = value
	return nil
}

func (s memoryStorage) Replace(ctx context.Context, key, old, value string) (bool, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	current, ok := s.backend.scopes[s.scope][key]
	if !ok || current != old {
		return false, nil
	}
	s.backend.scopes[s.scope][key] = value
	return true, nil
}

func (s memoryStorage) Delete(ctx context.Context, keys ...string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	values, ok := s.backend.scopes[s.scope]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(values, key)
	}
	if len(values) == 0 {
		delete(s.backend.scopes, s.scope)
	}
	return nil
}
