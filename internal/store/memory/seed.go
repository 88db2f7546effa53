package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Seed loads a JSON document keyed by entity name, each holding a list of
// records, and creates every record for owner:
//
//	{"bank_accounts": [{"id": "main", "name": "Main", "balance": "1000"}]}
//
// Entities are created in core.Entities order. Returns the number created.
func (s *Store) Seed(ctx context.Context, owner string, r io.Reader) (int, error) {
	var doc map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("decode seed: %w", err)
	}
	for name := range doc {
		if _, err := core.ParseEntity(name); err != nil {
			return 0, fmt.Errorf("seed: %w", err)
		}
	}

	n := 0
	for _, entity := range core.Entities() {
		for i, raw := range doc[string(entity)] {
			rec, err := store.Decode(entity, raw)
			if err != nil {
				return n, fmt.Errorf("seed %s[%d]: %w", entity, i, err)
			}
			if _, err := s.Create(ctx, owner, rec); err != nil {
				return n, fmt.Errorf("seed %s[%d]: %w", entity, i, err)
			}
			n++
		}
	}
	return n, nil
}

// NewFromFile creates a store seeded from path. A missing file gives an
// empty store.
func NewFromFile(ctx context.Context, c core.Clock, owner, path string) (*Store, error) {
	s := New(c)
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	if _, err := s.Seed(ctx, owner, f); err != nil {
		return nil, err
	}
	return s, nil
}
