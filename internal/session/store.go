package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store kinds accepted by session.store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// ErrEmptyID is returned for a blank session id.
var ErrEmptyID = errors.New("session id must not be empty")

// sweepInterval is the longest a store goes between dropping expired
// sessions in bulk. Stores with a shorter ttl sweep once per ttl.
const sweepInterval = 10 * time.Minute

// Store persists page state per session.
type Store interface {
	// Load returns the state of a session; an unknown or expired session
	// yields a fresh state.
	Load(ctx context.Context, id string) (*State, error)
	// Update applies fn to the session's state atomically. When fn returns an
	// error nothing is written.
	Update(ctx context.Context, id string, fn func(*State) error) error
	// Delete forgets a session.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Move hands the state of session from over to session to and forgets from.
// It is used to give a session a new id when it signs in.
func Move(ctx context.Context, s Store, from, to string) error {
	if from == "" || to == "" {
		return ErrEmptyID
	}
	st, err := s.Load(ctx, from)
	if err != nil {
		return err
	}
	if err := s.Update(ctx, to, func(dst *State) error {
		*dst = *st
		return nil
	}); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}

func nextSweep(now time.Time, ttl time.Duration) time.Time {
	return now.Add(min(ttl, sweepInterval))
}

func decodeState(raw []byte) (*State, error) {
	st := NewState()
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return st, nil
}

func encodeState(st *State) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}
	return raw, nil
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore keeps states in process memory. States are stored encoded so
// callers never share pointers with the store.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryStore creates an in-memory store; ttl bounds idle sessions.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) current(id string) []byte {
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.entries, id)
		return nil
	}
	return e.raw
}

// sweep drops every expired entry once the sweep is due. Callers hold mu.
func (m *MemoryStore) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
	m.nextSweep = nextSweep(now, m.ttl)
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	m.mu.Lock()
	raw := m.current(id)
	m.mu.Unlock()
	return decodeState(raw)
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*State) error) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()

	st, err := decodeState(m.current(id))
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	m.entries[id] = memoryEntry{raw: raw, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.entries {
		if m.current(id) != nil {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Close() error {
	return nil
}
