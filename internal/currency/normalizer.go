// Package currency converts amounts to and from the tracker's base currency.
//
// Rates are read from an immutable Table that is swapped atomically, so a
// refresh between two engine calls is picked up without a restart and never
// observed half-written.
package currency

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Table maps currency codes to the number of base units one unit is worth.
// The base currency itself is always 1.
type Table struct {
	Base      string
	Rates     map[string]decimal.Decimal
	UpdatedAt time.Time
}

// Normalizer is safe for concurrent use. A nil *Normalizer passes amounts
// through unchanged.
type Normalizer struct {
	table atomic.Pointer[Table]
}

func NewNormalizer(t Table) *Normalizer {
	n := &Normalizer{}
	n.Swap(t)
	return n
}

// Swap installs a new table. The map is copied and codes upper-cased.
func (n *Normalizer) Swap(t Table) {
	cp := Table{
		Base:      normalizeCode(t.Base),
		Rates:     make(map[string]decimal.Decimal, len(t.Rates)+1),
		UpdatedAt: t.UpdatedAt,
	}
	for code, rate := range t.Rates {
		cp.Rates[normalizeCode(code)] = rate
	}
	if cp.Base != "" {
		cp.Rates[cp.Base] = decimal.NewFromInt(1)
	}
	n.table.Store(&cp)
}

// Snapshot returns the current table.
func (n *Normalizer) Snapshot() Table {
	if n == nil {
		return Table{}
	}
	if t := n.table.Load(); t != nil {
		return *t
	}
	return Table{}
}

// Base returns the base currency code.
func (n *Normalizer) Base() string {
	return n.Snapshot().Base
}

// Rate returns the base units per unit of currency. Unknown, empty and
// non-positive rates read as 1.
func (n *Normalizer) Rate(currency string) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if n == nil || currency == "" {
		return one
	}
	t := n.table.Load()
	if t == nil {
		return one
	}
	rate, ok := t.Rates[normalizeCode(currency)]
	if !ok || !rate.IsPositive() {
		return one
	}
	return rate
}

// ToBase converts amount in currency to the base currency.
func (n *Normalizer) ToBase(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Mul(n.Rate(currency))
}

// FromBase converts a base amount into currency.
func (n *Normalizer) FromBase(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.DivRound(n.Rate(currency), 8)
}

// Codes lists the known currency codes in order.
func (n *Normalizer) Codes() []string {
	t := n.Snapshot()
	codes := make([]string, 0, len(t.Rates))
	for c := range t.Rates {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ParseRates reads "USD=0.92,GBP=1.17" into a rate map.
func ParseRates(s string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	s = strings.TrimSpace(s)
	if s == "" {
		return rates, nil
	}
	for _, pair := range strings.Split(s, ",") {
		code, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("invalid rate %q: want CODE=RATE", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q: must be a positive number", pair)
		}
		rates[normalizeCode(code)] = rate
	}
	return rates, nil
}

// Merge overlays newer rates on top of older ones, keeping codes the newer
// table does not know about.
func Merge(older, newer Table) Table {
	out := Table{Base: newer.Base, UpdatedAt: newer.UpdatedAt, Rates: make(map[string]decimal.Decimal)}
	if out.Base == "" {
		out.Base = older.Base
	}
	for c, r := range older.Rates {
		out.Rates[normalizeCode(c)] = r
	}
	for c, r := range newer.Rates {
		out.Rates[normalizeCode(c)] = r
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
