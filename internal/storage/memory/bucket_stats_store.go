package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
)

// BucketStatsStore is an in-memory implementation of storage.BucketStatsStore.
type BucketStatsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BucketStat // keyed by snapshot_id + "|" + range_key
}

// NewBucketStatsStore creates a new in-memory bucket stats store.
func NewBucketStatsStore() *BucketStatsStore {
	return &BucketStatsStore{
		data: make(map[string]*domain.BucketStat),
	}
}

func statKey(snapshotID, rangeKey string) string {
	return snapshotID + "|" + rangeKey
}

// InsertBulk adds all stats for one snapshot. Fails entire batch on any duplicate.
func (s *BucketStatsStore) InsertBulk(_ context.Context, stats []*domain.BucketStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map.
	for _, stat := range stats {
		if stat == nil || stat.SnapshotID == "" || stat.RangeKey == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[statKey(stat.SnapshotID, stat.RangeKey)]; exists {
			return storage.ErrDuplicateKey
		}
	}
	seen := make(map[string]struct{}, len(stats))
	for _, stat := range stats {
		key := statKey(stat.SnapshotID, stat.RangeKey)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, stat := range stats {
		statCopy := *stat
		s.data[statKey(stat.SnapshotID, stat.RangeKey)] = &statCopy
	}
	return nil
}

// GetBySnapshotID retrieves all stats for a snapshot, ordered by range_key ASC.
func (s *BucketStatsStore) GetBySnapshotID(_ context.Context, snapshotID string) ([]*domain.BucketStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BucketStat
	for _, stat := range s.data {
		if stat.SnapshotID == snapshotID {
			statCopy := *stat
			result = append(result, &statCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RangeKey < result[j].RangeKey
	})

	return result, nil
}

// GetByToken retrieves all stats for a token, ordered by snapshot_time ASC, range_key ASC.
func (s *BucketStatsStore) GetByToken(_ context.Context, token string) ([]*domain.BucketStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BucketStat
	for _, stat := range s.data {
		if stat.Token == token {
			statCopy := *stat
			result = append(result, &statCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SnapshotTime != result[j].SnapshotTime {
			return result[i].SnapshotTime < result[j].SnapshotTime
		}
		return result[i].RangeKey < result[j].RangeKey
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BucketStatsStore = (*BucketStatsStore)(nil)
