package reporting

import (
	"github.com/shopspring/decimal"
)

// The external contract types total_buy_volume and total_sol as JSON
// numbers; the library default would quote them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Report is the outbound analysis report. Field names follow the external
// JSON contract; decimals marshal as JSON numbers with full precision.
type Report struct {
	Token        string `json:"token"`
	SnapshotTime string `json:"snapshot_time"` // ISO-8601, UTC
	UniqueBuyers int    `json:"unique_buyers"`

	TotalBuyVolume decimal.Decimal `json:"total_buy_volume"`

	BuyersBySolRange map[string]Bucket `json:"buyers_by_sol_range"`

	Run RunSummary `json:"run"`

	rangeKeys []string // display order, set by the generator
}

// Bucket is one volume range in the report.
type Bucket struct {
	Wallets  []string        `json:"wallets"`
	Count    int             `json:"count"`
	TotalSol decimal.Decimal `json:"total_sol"`
}

// RunSummary lets the caller tell partial success apart from failure: a run
// that skipped signatures still produces a report, and the skip counts say
// how much of the input it covers.
type RunSummary struct {
	SignaturesSeen int            `json:"signatures_seen"`
	SwapsMatched   int            `json:"swaps_matched"`
	NotSwap        int            `json:"not_swap"`
	Duplicates     int            `json:"duplicates"`
	Skipped        SkippedSummary `json:"skipped"`
}

// SkippedSummary breaks down per-signature failures absorbed during the run.
type SkippedSummary struct {
	Total       int `json:"total"`
	Unparseable int `json:"unparseable"`
	Failed      int `json:"failed"`
}

// RangeKeys returns bucket keys in range order (ascending lower bound).
func (r *Report) RangeKeys() []string {
	return r.rangeKeys
}
