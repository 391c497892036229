package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

var _ driven.SyncStatusStore = (*MockSyncStatusStore)(nil)

// MockSyncStatusStore is an in-memory append-only ledger for testing
type MockSyncStatusStore struct {
	mu      sync.RWMutex
	entries []domain.SyncStatusEntry
	nextID  int64

	// AppendErr, when set, fails every Append
	AppendErr error
}

// NewMockSyncStatusStore creates a new MockSyncStatusStore
func NewMockSyncStatusStore() *MockSyncStatusStore {
	return &MockSyncStatusStore{nextID: 1}
}

func (m *MockSyncStatusStore) Append(ctx context.Context, entry *domain.SyncStatusEntry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.nextID
	m.nextID++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.entries = append(m.entries, *entry)
	return nil
}

// newer orders by timestamp, then insertion id
func newer(a, b domain.SyncStatusEntry) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}

func (m *MockSyncStatusStore) Latest(ctx context.Context, kind domain.EntityKind) (*domain.SyncStatusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.SyncStatusEntry
	for i := range m.entries {
		e := m.entries[i]
		if e.Kind != kind {
			continue
		}
		if latest == nil || newer(e, *latest) {
			latest = &e
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (m *MockSyncStatusStore) LatestAll(ctx context.Context) ([]*domain.SyncStatusEntry, error) {
	var result []*domain.SyncStatusEntry
	for _, kind := range domain.RunOrder {
		e, err := m.Latest(ctx, kind)
		if err == domain.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *MockSyncStatusStore) History(ctx context.Context, kind domain.EntityKind, limit int) ([]*domain.SyncStatusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncStatusEntry
	for i := range m.entries {
		if m.entries[i].Kind == kind {
			e := m.entries[i]
			result = append(result, &e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return newer(*result[i], *result[j]) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Helper methods for testing

// Entries returns every entry in insertion order
func (m *MockSyncStatusStore) Entries() []domain.SyncStatusEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SyncStatusEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// EntriesFor returns the entries of one kind in insertion order
func (m *MockSyncStatusStore) EntriesFor(kind domain.EntityKind) []domain.SyncStatusEntry {
	var out []domain.SyncStatusEntry
	for _, e := range m.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockSyncStatusStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.nextID = 1
}

func (m *MockSyncStatusStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
