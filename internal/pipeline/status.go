package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/joseph-ayodele/property-intake/constants"
)

// StatusStore records the lifecycle state of documents and batches.
type StatusStore interface {
	SetDocumentStatus(ctx context.Context, documentID string, status constants.DocumentStatus) error
	SetBatchStatus(ctx context.Context, batchID string, status constants.BatchStatus) error
}

type statusEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryStatusStore is a request-scoped StatusStore. Entries older than the
// TTL are removed by Evict.
type MemoryStatusStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	documents map[string]statusEntry
	batches   map[string]statusEntry
}

// NewMemoryStatusStore returns an empty store; ttl <= 0 keeps entries forever.
func NewMemoryStatusStore(ttl time.Duration) *MemoryStatusStore {
	return &MemoryStatusStore{
		ttl:       ttl,
		now:       time.Now,
		documents: map[string]statusEntry{},
		batches:   map[string]statusEntry{},
	}
}

// WithClock replaces the time source, for tests.
func (m *MemoryStatusStore) WithClock(now func() time.Time) *MemoryStatusStore {
	m.now = now
	return m
}

func (m *MemoryStatusStore) SetDocumentStatus(_ context.Context, id string, s constants.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[id] = statusEntry{value: string(s), updatedAt: m.now()}
	return nil
}

func (m *MemoryStatusStore) SetBatchStatus(_ context.Context, id string, s constants.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[id] = statusEntry{value: string(s), updatedAt: m.now()}
	return nil
}

// DocumentStatus returns the last recorded status of a document.
func (m *MemoryStatusStore) DocumentStatus(id string) (constants.DocumentStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.documents[id]
	return constants.DocumentStatus(e.value), ok
}

// BatchStatus returns the last recorded status of a batch.
func (m *MemoryStatusStore) BatchStatus(id string) (constants.BatchStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.batches[id]
	return constants.BatchStatus(e.value), ok
}

// Evict drops entries not updated within the TTL and returns the count.
func (m *MemoryStatusStore) Evict() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	n := 0
	for _, set := range []map[string]statusEntry{m.documents, m.batches} {
		for k, e := range set {
			if e.updatedAt.Before(cutoff) {
				delete(set, k)
				n++
			}
		}
	}
	return n
}

// MultiStatusStore writes to every store and returns the first error.
type MultiStatusStore []StatusStore

func (m MultiStatusStore) SetDocumentStatus(ctx context.Context, id string, s constants.DocumentStatus) error {
	var first error
	for _, st := range m {
		if err := st.SetDocumentStatus(ctx, id, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiStatusStore) SetBatchStatus(ctx context.Context, id string, s constants.BatchStatus) error {
	var first error
	for _, st := range m {
		if err := st.SetBatchStatus(ctx, id, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
