// Package store defines the record store the services read from and write
// to. Every call is scoped to one owner.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrMissingID = errors.New("record id is required")
	ErrNoOwner   = errors.New("owner is required")
)

// Query filters a List call. Month is optional.
type Query struct {
	Owner  string
	Entity core.Entity
	Month  core.Month
}

// Store is the persistence port.
type Store interface {
	List(ctx context.Context, q Query) ([]core.Record, error)
	Get(ctx context.Context, owner string, entity core.Entity, id string) (core.Record, error)
	Create(ctx context.Context, owner string, r core.Record) (core.Record, error)
	Update(ctx context.Context, owner string, r core.Record) (core.Record, error)
	Delete(ctx context.Context, owner string, entity core.Entity, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// PrepareCreate validates r and fills in its id, owner and timestamps.
func PrepareCreate(r core.Record, owner string, now time.Time) error {
	if owner == "" {
		return ErrNoOwner
	}
	if err := r.Validate(); err != nil {
		return err
	}
	m := r.Base()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.OwnerID = owner
	m.CreatedAt = now.UTC()
	m.UpdatedAt = now.UTC()
	return nil
}

// PrepareUpdate validates r and stamps it, keeping the stored creation time.
func PrepareUpdate(r core.Record, owner string, createdAt, now time.Time) error {
	if owner == "" {
		return ErrNoOwner
	}
	if r.Base().ID == "" {
		return ErrMissingID
	}
	if err := r.Validate(); err != nil {
		return err
	}
	m := r.Base()
	m.OwnerID = owner
	m.CreatedAt = createdAt
	m.UpdatedAt = now.UTC()
	return nil
}

// Encode serializes a record with its field names.
func Encode(r core.Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Entity(), err)
	}
	return b, nil
}

// Decode rebuilds a record of entity from Encode output.
func Decode(entity core.Entity, data []byte) (core.Record, error) {
	r := core.NewRecord(entity)
	if r == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownEntity, entity)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entity, err)
	}
	return r, nil
}

// SortRecords orders records by month, creation time and id.
func SortRecords(rs []core.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if am, bm := a.RecordMonth(), b.RecordMonth(); am != bm {
			return am < bm
		}
		if at, bt := a.Base().CreatedAt, b.Base().CreatedAt; !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.Base().ID < b.Base().ID
	})
}

// ListOf lists one entity as values. T is inferred from the pointer type.
//
//	expenses, err := store.ListOf[core.Expense](ctx, s, owner, "")
func ListOf[T any, P interface {
	*T
	core.Record
}](ctx context.Context, s Store, owner string, month core.Month) ([]T, error) {
	entity := P(new(T)).Entity()
	rs, err := s.List(ctx, Query{Owner: owner, Entity: entity, Month: month})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		p, ok := r.(P)
		if !ok {
			return nil, fmt.Errorf("list %s: unexpected record type %T", entity, r)
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetAs fetches one record and asserts its type.
func GetAs[T any, P interface {
	*T
	core.Record
}](ctx context.Context, s Store, owner, id string) (*T, error) {
	entity := P(new(T)).Entity()
	r, err := s.Get(ctx, owner, entity, id)
	if err != nil {
		return nil, err
	}
	p, ok := r.(P)
	if !ok {
		return nil, fmt.Errorf("get %s: unexpected record type %T", entity, r)
	}
	return (*T)(p), nil
}
