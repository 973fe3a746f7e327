package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.ReportSnapshot) error {
	query := `
		INSERT INTO report_snapshots (
			snapshot_id, token, snapshot_time, unique_buyers, total_buy_volume, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		snap.SnapshotID,
		snap.Token,
		snap.SnapshotTime,
		snap.UniqueBuyers,
		snap.TotalBuyVolume.String(),
		snap.Payload,
		snap.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_snapshot", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.ReportSnapshot, error) {
	query := `
		SELECT snapshot_id, token, snapshot_time, unique_buyers, total_buy_volume::text, payload, created_at
		FROM report_snapshots
		WHERE snapshot_id = $1
	`

	row := s.pool.QueryRow(ctx, query, snapshotID)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetByToken retrieves all snapshots for a token, ordered by snapshot_time ASC.
func (s *SnapshotStore) GetByToken(ctx context.Context, token string) ([]*domain.ReportSnapshot, error) {
	query := `
		SELECT snapshot_id, token, snapshot_time, unique_buyers, total_buy_volume::text, payload, created_at
		FROM report_snapshots
		WHERE token = $1
		ORDER BY snapshot_time ASC, snapshot_id ASC
	`

	rows, err := s.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by token: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.ReportSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// scanSnapshot scans a single row into a ReportSnapshot.
func scanSnapshot(row pgx.Row) (*domain.ReportSnapshot, error) {
	var snap domain.ReportSnapshot
	var volumeStr string

	err := row.Scan(
		&snap.SnapshotID,
		&snap.Token,
		&snap.SnapshotTime,
		&snap.UniqueBuyers,
		&volumeStr,
		&snap.Payload,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	volume, err := decimal.NewFromString(volumeStr)
	if err != nil {
		return nil, fmt.Errorf("parse total_buy_volume %q: %w", volumeStr, err)
	}
	snap.TotalBuyVolume = volume

	return &snap, nil
}
