// Package store provides Persister implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/float-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ ledger.Persister = (*Memory)(nil)

type Memory struct {
	mu    sync.RWMutex
	state ledger.State
	saves int

	// failNext makes the next Save calls fail (failure injection for tests).
	failNext []error
}

func NewMemory() *Memory {
	return &Memory{state: ledger.NewState()}
}

// NewMemoryWith starts the store from an existing state.
func NewMemoryWith(s ledger.State) *Memory {
	return &Memory{state: s.Clone()}
}

// Load returns a copy of the stored state.
func (m *Memory) Load(_ context.Context) (ledger.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone(), nil
}

// Save replaces the stored state with a copy of s.
func (m *Memory) Save(_ context.Context, s ledger.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return err
	}
	m.state = s.Clone()
	m.saves++
	return nil
}

// FailNext queues errors returned by the following Save calls, in order.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
}

// Saves reports how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
