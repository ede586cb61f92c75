package store

import (
	"context"
	"sync"
	"time"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

// MemoryStore keeps records in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.SubmissionRecord
	Now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]models.SubmissionRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (m *MemoryStore) Create(_ context.Context, rec models.SubmissionRecord) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Key]; ok {
		return AlreadyExists, nil
	}
	rec.ReceivedAt = m.Now()
	m.records[rec.Key] = rec
	return Created, nil
}

// lookup returns the stored record for key.
func (m *MemoryStore) lookup(key string) (models.SubmissionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok
}

// size returns the number of stored records.
func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
