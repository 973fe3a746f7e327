package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Range is one half-open volume interval [Lower, Upper). A nil Upper means
// the range is unbounded above.
type Range struct {
	Key   string
	Lower decimal.Decimal
	Upper *decimal.Decimal
}

// Contains reports whether amount falls inside the range. The lower bound
// is inclusive, the upper bound exclusive.
func (r Range) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(r.Lower) {
		return false
	}
	if r.Upper != nil && amount.GreaterThanOrEqual(*r.Upper) {
		return false
	}
	return true
}

// RangeTable is an ordered, non-overlapping, gap-free partition of the
// non-negative volume axis. Every non-negative amount maps to exactly one
// range.
type RangeTable []Range

// NewRangeTable builds a table from ordered boundary values. Each adjacent
// pair (b[i], b[i+1]) becomes a half-open range; the last boundary opens an
// unbounded range. Boundaries must start at zero and be strictly increasing.
func NewRangeTable(bounds []decimal.Decimal) (RangeTable, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("range table requires at least one boundary")
	}
	if !bounds[0].IsZero() {
		return nil, fmt.Errorf("first boundary must be 0, got %s", bounds[0])
	}

	table := make(RangeTable, 0, len(bounds))
	for i, lower := range bounds {
		if i > 0 && !lower.GreaterThan(bounds[i-1]) {
			return nil, fmt.Errorf("boundaries must be strictly increasing: %s after %s", lower, bounds[i-1])
		}
		r := Range{Lower: lower}
		if i+1 < len(bounds) {
			upper := bounds[i+1]
			r.Upper = &upper
		}
		r.Key = rangeKey(r.Lower, r.Upper)
		table = append(table, r)
	}
	return table, nil
}

// MustRangeTable is NewRangeTable that panics on invalid boundaries.
// For static tables in package variables and tests.
func MustRangeTable(bounds []decimal.Decimal) RangeTable {
	table, err := NewRangeTable(bounds)
	if err != nil {
		panic(err)
	}
	return table
}

// DefaultRangeTable returns the standard SOL buckets:
// [0,1), [1,5), [5,10), [10,inf).
func DefaultRangeTable() RangeTable {
	return MustRangeTable([]decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(1),
		decimal.NewFromInt(5),
		decimal.NewFromInt(10),
	})
}

// Validate checks ordering, gap-freeness and coverage of [0,inf).
func (t RangeTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("range table is empty")
	}
	if !t[0].Lower.IsZero() {
		return fmt.Errorf("table must start at 0, got %s", t[0].Lower)
	}
	for i, r := range t {
		last := i == len(t)-1
		if last {
			if r.Upper != nil {
				return fmt.Errorf("final range %s must be unbounded", r.Key)
			}
			continue
		}
		if r.Upper == nil {
			return fmt.Errorf("range %s is unbounded but not final", r.Key)
		}
		if !r.Upper.GreaterThan(r.Lower) {
			return fmt.Errorf("range %s has non-positive width", r.Key)
		}
		if !t[i+1].Lower.Equal(*r.Upper) {
			return fmt.Errorf("gap between %s and %s", r.Key, t[i+1].Key)
		}
	}
	return nil
}

// Locate returns the key of the unique range containing amount.
// Negative amounts match nothing.
func (t RangeTable) Locate(amount decimal.Decimal) (string, bool) {
	for _, r := range t {
		if r.Contains(amount) {
			return r.Key, true
		}
	}
	return "", false
}

// Keys returns range keys in table order.
func (t RangeTable) Keys() []string {
	keys := make([]string, len(t))
	for i, r := range t {
		keys[i] = r.Key
	}
	return keys
}

// rangeKey derives the stable identifier for a range from its boundaries,
// e.g. "0_1", "5_10", "10_plus".
func rangeKey(lower decimal.Decimal, upper *decimal.Decimal) string {
	if upper == nil {
		return boundLabel(lower) + "_plus"
	}
	return boundLabel(lower) + "_" + boundLabel(*upper)
}

// boundLabel formats a boundary for use inside a key. Fractional boundaries
// use "p" for the decimal point so keys stay identifier-safe.
func boundLabel(v decimal.Decimal) string {
	s := v.String()
	return strings.ReplaceAll(s, ".", "p")
}
