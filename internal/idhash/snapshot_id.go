package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(token|snapshot_time|unique_buyers|total_buy_volume)
// Returns hex-encoded hash (64 characters). Two runs over the same token at
// the same instant with the same result collapse to one ID, so retried
// persistence of an identical report is rejected as a duplicate instead of
// stored twice.
func ComputeSnapshotID(token string, snapshotTime int64, uniqueBuyers int, totalBuyVolume string) string {
	data := fmt.Sprintf("%s|%d|%d|%s",
		token,
		snapshotTime,
		uniqueBuyers,
		totalBuyVolume,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
