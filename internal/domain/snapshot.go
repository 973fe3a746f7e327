package domain

import "github.com/shopspring/decimal"

// ReportSnapshot is a persisted analysis report. Corresponds to the
// report_snapshots table in PostgreSQL.
type ReportSnapshot struct {
	SnapshotID     string
	Token          string
	SnapshotTime   int64 // Unix timestamp in milliseconds
	UniqueBuyers   int
	TotalBuyVolume decimal.Decimal
	Payload        []byte // full report JSON as served to callers
	CreatedAt      int64  // record creation timestamp (ms)
}

// BucketStat is one per-bucket row of a snapshot, stored in ClickHouse for
// cross-run analytics.
type BucketStat struct {
	SnapshotID   string
	Token        string
	SnapshotTime int64 // Unix timestamp in milliseconds
	RangeKey     string
	WalletCount  int
	TotalAmount  decimal.Decimal
}
