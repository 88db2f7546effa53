package currency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DefaultECBURL is the European Central Bank daily reference rate feed.
const DefaultECBURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// maxFeedBytes bounds the feed body; the real document is a few kilobytes.
const maxFeedBytes = 1 << 20

// RateSource produces a rate table. Implementations may hit the network.
type RateSource interface {
	Fetch(ctx context.Context) (Table, error)
}

// StaticSource serves a fixed table, typically built from configuration.
type StaticSource struct {
	Table Table
}

func (s StaticSource) Fetch(context.Context) (Table, error) {
	return s.Table, nil
}

// ECBSource reads the ECB euro reference rates and rebases them onto Base.
type ECBSource struct {
	URL    string
	Base   string
	Client *http.Client
}

// NewECBSource creates a source with a bounded HTTP client.
func NewECBSource(url, base string) *ECBSource {
	if url == "" {
		url = DefaultECBURL
	}
	return &ECBSource{
		URL:    url,
		Base:   base,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *ECBSource) Fetch(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Table{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch ECB rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("fetch ECB rates: unexpected status code %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return Table{}, fmt.Errorf("read ECB response: %w", err)
	}
	if len(body) > maxFeedBytes {
		return Table{}, fmt.Errorf("read ECB response: body exceeds %d bytes", maxFeedBytes)
	}
	return ParseECB(body, s.Base)
}

// ParseECB parses the eurofxref XML. The feed quotes units of currency per
// one euro; the result is base units per one unit of each currency.
func ParseECB(raw []byte, base string) (Table, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return Table{}, fmt.Errorf("parse ECB XML: %w", err)
	}

	perEuro := map[string]decimal.Decimal{"EUR": decimal.NewFromInt(1)}
	var updated time.Time
	if day := doc.FindElement("//Cube[@time]"); day != nil {
		if t, err := time.Parse("2006-01-02", day.SelectAttrValue("time", "")); err == nil {
			updated = t
		}
	}
	for _, el := range doc.FindElements("//Cube[@currency]") {
		code := normalizeCode(el.SelectAttrValue("currency", ""))
		rate, err := decimal.NewFromString(el.SelectAttrValue("rate", ""))
		if code == "" || err != nil || !rate.IsPositive() {
			continue
		}
		perEuro[code] = rate
	}
	if len(perEuro) == 1 {
		return Table{}, errors.New("no rates found in ECB XML")
	}

	base = normalizeCode(base)
	if base == "" {
		base = "EUR"
	}
	baseRate, ok := perEuro[base]
	if !ok {
		return Table{}, fmt.Errorf("base currency %s not quoted by ECB", base)
	}

	rates := make(map[string]decimal.Decimal, len(perEuro))
	for code, r := range perEuro {
		rates[code] = baseRate.DivRound(r, 8)
	}
	return Table{Base: base, Rates: rates, UpdatedAt: updated}, nil
}

// Refresher pulls a source into a normalizer. Concurrent refreshes share a
// single fetch.
type Refresher struct {
	source   RateSource
	target   *Normalizer
	fallback Table
	group    singleflight.Group
}

// NewRefresher keeps fallback rates for any code the source omits.
func NewRefresher(source RateSource, target *Normalizer, fallback Table) *Refresher {
	return &Refresher{source: source, target: target, fallback: fallback}
}

// Refresh fetches and installs a new table. On failure the current table is
// left untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	_, err, shared := r.group.Do("refresh", func() (any, error) {
		t, err := r.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.target.Swap(Merge(r.fallback, t))
		return nil, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Currency rate refresh failed", "error", err)
		return fmt.Errorf("refresh rates: %w", err)
	}
	slog.InfoContext(ctx, "Currency rates refreshed",
		"base", r.target.Base(),
		"currencies", len(r.target.Snapshot().Rates),
		"shared", shared)
	return nil
}
