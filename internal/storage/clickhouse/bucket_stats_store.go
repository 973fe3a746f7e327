package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
)

// BucketStatsStore implements storage.BucketStatsStore using ClickHouse.
// Bucket stats are the analytical side of a snapshot: one row per
// (snapshot, range), queryable across snapshots for a token over time.
type BucketStatsStore struct {
	conn *Conn
}

// NewBucketStatsStore creates a new BucketStatsStore.
func NewBucketStatsStore(conn *Conn) *BucketStatsStore {
	return &BucketStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BucketStatsStore = (*BucketStatsStore)(nil)

// InsertBulk adds all stats for one snapshot. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly
// before the batch is sent.
func (s *BucketStatsStore) InsertBulk(ctx context.Context, stats []*domain.BucketStat) error {
	if len(stats) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(stats))
	for _, stat := range stats {
		if stat == nil || stat.SnapshotID == "" || stat.RangeKey == "" {
			return storage.ErrInvalidInput
		}
		key := stat.SnapshotID + "|" + stat.RangeKey
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, stat := range stats {
		exists, err := s.exists(ctx, stat.SnapshotID, stat.RangeKey)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bucket_stats (
			snapshot_id, token, snapshot_time, range_key, wallet_count, total_amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, stat := range stats {
		err = batch.Append(
			stat.SnapshotID,
			stat.Token,
			stat.SnapshotTime,
			stat.RangeKey,
			int32(stat.WalletCount),
			stat.TotalAmount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_bucket_stats", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySnapshotID retrieves all stats for a snapshot, ordered by range_key ASC.
func (s *BucketStatsStore) GetBySnapshotID(ctx context.Context, snapshotID string) ([]*domain.BucketStat, error) {
	query := `
		SELECT snapshot_id, token, snapshot_time, range_key, wallet_count, total_amount
		FROM bucket_stats
		WHERE snapshot_id = ?
		ORDER BY range_key ASC
	`

	rows, err := s.conn.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query by snapshot id: %w", err)
	}
	defer rows.Close()

	return scanBucketStats(rows)
}

// GetByToken retrieves all stats for a token, ordered by snapshot_time ASC, range_key ASC.
func (s *BucketStatsStore) GetByToken(ctx context.Context, token string) ([]*domain.BucketStat, error) {
	query := `
		SELECT snapshot_id, token, snapshot_time, range_key, wallet_count, total_amount
		FROM bucket_stats
		WHERE token = ?
		ORDER BY snapshot_time ASC, range_key ASC
	`

	rows, err := s.conn.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanBucketStats(rows)
}

// exists checks if a stat row with the given key exists.
func (s *BucketStatsStore) exists(ctx context.Context, snapshotID, rangeKey string) (bool, error) {
	query := `
		SELECT count(*) FROM bucket_stats
		WHERE snapshot_id = ? AND range_key = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, snapshotID, rangeKey).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanBucketStats scans multiple rows into a slice.
func scanBucketStats(rows chRows) ([]*domain.BucketStat, error) {
	var stats []*domain.BucketStat

	for rows.Next() {
		var stat domain.BucketStat
		var walletCount int32

		err := rows.Scan(
			&stat.SnapshotID,
			&stat.Token,
			&stat.SnapshotTime,
			&stat.RangeKey,
			&walletCount,
			&stat.TotalAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bucket stat row: %w", err)
		}

		stat.WalletCount = int(walletCount)
		stats = append(stats, &stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket stat rows: %w", err)
	}

	return stats, nil
}
