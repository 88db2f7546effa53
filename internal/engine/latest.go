// Package engine is the monthly projection pipeline. Every function is a
// pure transformation of already-loaded record slices: no I/O, no clock
// reads except through an injected core.Clock, and stable ordering so that
// identical inputs give identical outputs.
package engine

import (
	"sort"
	"strings"

	"fintrack/internal/core"
)

// VisibleFunc decides whether the resolved record for an identity is shown
// in month.
type VisibleFunc[R any] func(r R, month core.Month) bool

// LatestAsOf returns, per identity key, the record with the greatest
// UpdatedAt among records whose month is at or before month. Equal
// timestamps are broken by the larger id.
//
// Visibility is checked on the winning record, so a closing record hides the
// account even though older snapshots without closed_at exist. A nil visible
// func shows everything.
func LatestAsOf[R core.Stamped](records []R, month core.Month, key func(R) string, visible VisibleFunc[R]) map[string]R {
	winners := make(map[string]R)
	for _, r := range records {
		if rm := r.RecordMonth(); rm != "" && rm.After(month) {
			continue
		}
		k := key(r)
		cur, ok := winners[k]
		if !ok || newer(r, cur) {
			winners[k] = r
		}
	}
	if visible == nil {
		return winners
	}
	for k, r := range winners {
		if !visible(r, month) {
			delete(winners, k)
		}
	}
	return winners
}

func newer[R core.Stamped](a, b R) bool {
	at, bt := a.Stamp(), b.Stamp()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.RecordID() > b.RecordID()
}

// VisibleUnlessClosed shows a record unless it carries a closed_at whose
// month is strictly before month. An account closed in M is visible in M and
// hidden from M.Next() on.
func VisibleUnlessClosed[R core.Closable](r R, month core.Month) bool {
	closed := r.ClosedTime()
	if closed == nil {
		return true
	}
	return !month.After(core.MonthOf(*closed))
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NameKey folds an account or template name for identity matching.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func byID[R core.Stamped](r R) string { return r.RecordID() }
