package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReportSnapshot // keyed by snapshot_id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.ReportSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.ReportSnapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.Token == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	snapCopy := *snap
	s.data[snap.SnapshotID] = &snapCopy
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.ReportSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// GetByToken retrieves all snapshots for a token, ordered by snapshot_time ASC.
func (s *SnapshotStore) GetByToken(_ context.Context, token string) ([]*domain.ReportSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReportSnapshot
	for _, snap := range s.data {
		if snap.Token == token {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SnapshotTime != result[j].SnapshotTime {
			return result[i].SnapshotTime < result[j].SnapshotTime
		}
		return result[i].SnapshotID < result[j].SnapshotID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
