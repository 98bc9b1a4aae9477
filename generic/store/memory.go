// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/tip-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[generic.RunID][]generic.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[generic.RunID][]generic.Entry),
		idempotency: make(map[string]bool),
	}
}

// AppendBatch adds entries atomically.
func (m *Memory) AppendBatch(_ context.Context, entries []generic.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first, including within the batch
	batch := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[e.IdempotencyKey] || batch[e.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		batch[e.IdempotencyKey] = true
	}

	for _, e := range entries {
		m.entries[e.RunID] = append(m.entries[e.RunID], e)
		if e.IdempotencyKey != "" {
			m.idempotency[e.IdempotencyKey] = true
		}
	}
	return nil
}

func (m *Memory) Load(_ context.Context, runID generic.RunID) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Entry, len(m.entries[runID]))
	copy(result, m.entries[runID])
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
