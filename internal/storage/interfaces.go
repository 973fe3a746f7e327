package storage

import (
	"context"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
)

// SnapshotStore provides access to report_snapshots storage. Snapshots are
// append-only: one row per completed analysis run.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.ReportSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.ReportSnapshot, error)

	// GetByToken retrieves all snapshots for a token, ordered by snapshot_time ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.ReportSnapshot, error)
}

// BucketStatsStore provides access to bucket_stats storage: one row per
// (snapshot, range) pair, suitable for time-series queries over snapshots.
type BucketStatsStore interface {
	// InsertBulk adds all stats for one snapshot. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, stats []*domain.BucketStat) error

	// GetBySnapshotID retrieves all stats for a snapshot, ordered by range_key ASC.
	GetBySnapshotID(ctx context.Context, snapshotID string) ([]*domain.BucketStat, error)

	// GetByToken retrieves all stats for a token, ordered by snapshot_time ASC, range_key ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.BucketStat, error)
}
