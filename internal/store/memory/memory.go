// Package memory is an in-process record store. Records are kept encoded so
// callers never share memory with the store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type row struct {
	owner string
	data  []byte
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	clock core.Clock
	rows  map[core.Entity]map[string]row
}

var _ store.Store = (*Store)(nil)

// New creates an empty store. A nil clock uses the system clock.
func New(c core.Clock) *Store {
	if c == nil {
		c = core.SystemClock{}
	}
	return &Store{clock: c, rows: make(map[core.Entity]map[string]row)}
}

func (s *Store) List(ctx context.Context, q store.Query) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Record, 0)
	for _, rw := range s.rows[q.Entity] {
		if rw.owner != q.Owner {
			continue
		}
		r, err := store.Decode(q.Entity, rw.data)
		if err != nil {
			return nil, err
		}
		if rm := r.RecordMonth(); q.Month != "" && rm != "" && rm != q.Month {
			continue
		}
		out = append(out, r)
	}
	store.SortRecords(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, owner string, entity core.Entity, id string) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rw, ok := s.rows[entity][id]
	if !ok || rw.owner != owner {
		return nil, fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	return store.Decode(entity, rw.data)
}

func (s *Store) Create(ctx context.Context, owner string, r core.Record) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.PrepareCreate(r, owner, s.clock.Now()); err != nil {
		return nil, err
	}
	data, err := store.Encode(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[r.Entity()] == nil {
		s.rows[r.Entity()] = make(map[string]row)
	}
	if _, exists := s.rows[r.Entity()][r.Base().ID]; exists {
		return nil, fmt.Errorf("%s %s already exists", r.Entity(), r.Base().ID)
	}
	s.rows[r.Entity()][r.Base().ID] = row{owner: owner, data: data}
	return r, nil
}

func (s *Store) Update(ctx context.Context, owner string, r core.Record) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.Base().ID
	rw, ok := s.rows[r.Entity()][id]
	if !ok || rw.owner != owner {
		return nil, fmt.Errorf("%s %s: %w", r.Entity(), id, store.ErrNotFound)
	}
	prev, err := store.Decode(r.Entity(), rw.data)
	if err != nil {
		return nil, err
	}
	if err := store.PrepareUpdate(r, owner, prev.Base().CreatedAt, s.clock.Now()); err != nil {
		return nil, err
	}
	data, err := store.Encode(r)
	if err != nil {
		return nil, err
	}
	s.rows[r.Entity()][id] = row{owner: owner, data: data}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, owner string, entity core.Entity, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rw, ok := s.rows[entity][id]
	if !ok || rw.owner != owner {
		return fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	delete(s.rows[entity], id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
