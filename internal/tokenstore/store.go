// Package tokenstore persists the single bearer token between runs.
package tokenstore

import (
	"sync"

	"github.com/omelentjeff/product-management-app/internal/errs"
)

// Key is the fixed key the token is stored under.
const Key = "token"

// Store holds at most one token. Load returns errs.ErrNoToken when empty.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemStore keeps the token in memory only.
type MemStore struct {
	mu    sync.Mutex
	token string
}

// NewMem returns an empty in-memory store.
func NewMem() *MemStore { return &MemStore{} }

func (m *MemStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", errs.ErrNoToken
	}
	return m.token, nil
}

func (m *MemStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
