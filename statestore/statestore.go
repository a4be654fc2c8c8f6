// Package statestore persists the PhaseState that carries a profile draft
// across the navigation to the skills page. State is scoped by context (tab)
// and stored under a single well-known key per scope.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// ErrNotFound is returned by Load when no state is stored for the scope.
var ErrNotFound = errors.New("statestore: no pending state")

// Store persists PhaseState.
type Store interface {
	Save(ctx context.Context, scope protocol.ContextID, st *profile.PhaseState) error
	Load(ctx context.Context, scope protocol.ContextID) (*profile.PhaseState, error)
	Delete(ctx context.Context, scope protocol.ContextID) error
}

// Memory keeps state in process.
type Memory struct {
	mu   sync.Mutex
	data map[protocol.ContextID][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[protocol.ContextID][]byte)}
}

// Save implements Store. The state is serialized so later mutations of st
// do not leak into the stored copy.
func (m *Memory) Save(_ context.Context, scope protocol.ContextID, st *profile.PhaseState) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[scope] = data
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, scope protocol.ContextID) (*profile.PhaseState, error) {
	m.mu.Lock()
	data, ok := m.data[scope]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return profile.DecodeState(data)
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, scope protocol.ContextID) error {
	m.mu.Lock()
	delete(m.data, scope)
	m.mu.Unlock()
	return nil
}

// KV is a string key/value area bound to one context, such as a tab's
// sessionStorage.
type KV interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Session stores state in the context's own KV area, so it lives exactly as
// long as the tab session. The scope argument is implied by the KV.
type Session struct {
	kv KV
}

// NewSession wraps kv.
func NewSession(kv KV) *Session { return &Session{kv: kv} }

// Save implements Store.
func (s *Session) Save(ctx context.Context, _ protocol.ContextID, st *profile.PhaseState) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, profile.StateKey, string(data)); err != nil {
		return fmt.Errorf("statestore: session save: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *Session) Load(ctx context.Context, _ protocol.ContextID) (*profile.PhaseState, error) {
	v, ok, err := s.kv.GetItem(ctx, profile.StateKey)
	if err != nil {
		return nil, fmt.Errorf("statestore: session load: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return profile.DecodeState([]byte(v))
}

// Delete implements Store.
func (s *Session) Delete(ctx context.Context, _ protocol.ContextID) error {
	if err := s.kv.RemoveItem(ctx, profile.StateKey); err != nil {
		return fmt.Errorf("statestore: session delete: %w", err)
	}
	return nil
}
