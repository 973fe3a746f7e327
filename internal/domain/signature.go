package domain

import "time"

// SignatureRecord is one transaction identifier observed for a token,
// together with its block metadata. Records are transient: once resolved
// into a swap event (or skipped) they are discarded.
type SignatureRecord struct {
	Signature string
	Slot      int64
	BlockTime int64 // Unix timestamp in seconds, 0 if unknown
}

// TimeWindow bounds an analysis run. Zero Start or End means unbounded
// on that side.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether a block time (Unix seconds) falls inside the
// window.
func (w TimeWindow) Contains(blockTime int64) bool {
	t := time.Unix(blockTime, 0)
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Before reports whether a block time falls strictly before the window
// start. Used to stop backwards pagination early.
func (w TimeWindow) Before(blockTime int64) bool {
	if w.Start.IsZero() {
		return false
	}
	return time.Unix(blockTime, 0).Before(w.Start)
}
