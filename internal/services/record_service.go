package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// EventPublisher announces record changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// RecordService writes records and tells the rest of the system about it:
// local listeners first, then the broker.
type RecordService struct {
	store     store.Store
	publisher EventPublisher
	listeners []func(owner string)
}

// NewRecordService accepts a nil publisher; events are then only delivered
// to local listeners.
func NewRecordService(s store.Store, publisher EventPublisher) *RecordService {
	return &RecordService{store: s, publisher: publisher}
}

// OnChange registers fn to run after every successful write. Register
// listeners before serving requests.
func (s *RecordService) OnChange(fn func(owner string)) {
	s.listeners = append(s.listeners, fn)
}

func (s *RecordService) Store() store.Store { return s.store }

func (s *RecordService) List(ctx context.Context, owner string, entity core.Entity, month core.Month) ([]core.Record, error) {
	return s.store.List(ctx, store.Query{Owner: owner, Entity: entity, Month: month})
}

func (s *RecordService) Get(ctx context.Context, owner string, entity core.Entity, id string) (core.Record, error) {
	return s.store.Get(ctx, owner, entity, id)
}

// Create saves r and publishes a create event.
func (s *RecordService) Create(ctx context.Context, owner string, r core.Record) (core.Record, error) {
	return s.create(ctx, owner, r, amqp.OpCreate)
}

func (s *RecordService) create(ctx context.Context, owner string, r core.Record, op amqp.Op) (core.Record, error) {
	saved, err := s.store.Create(ctx, owner, r)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.Entity(), err)
	}
	s.changed(ctx, owner, saved, op)
	return saved, nil
}

// Update replaces the stored record with the same id.
func (s *RecordService) Update(ctx context.Context, owner string, r core.Record) (core.Record, error) {
	saved, err := s.store.Update(ctx, owner, r)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.Entity(), err)
	}
	s.changed(ctx, owner, saved, amqp.OpUpdate)
	return saved, nil
}

// Delete removes a record. The event carries the month the record had.
func (s *RecordService) Delete(ctx context.Context, owner string, entity core.Entity, id string) error {
	var month core.Month
	if r, err := s.store.Get(ctx, owner, entity, id); err == nil {
		month = r.RecordMonth()
	}
	if err := s.store.Delete(ctx, owner, entity, id); err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	s.notify(ctx, amqp.NewRecordChangedMessage(owner, string(entity), id, string(month), amqp.OpDelete))
	return nil
}

func (s *RecordService) changed(ctx context.Context, owner string, r core.Record, op amqp.Op) {
	msg := amqp.NewRecordChangedMessage(owner, string(r.Entity()), r.Base().ID, string(r.RecordMonth()), op)
	s.notify(ctx, msg)
}

// notify never fails the write: the record is already stored.
func (s *RecordService) notify(ctx context.Context, msg *amqp.RecordChangedMessage) {
	for _, fn := range s.listeners {
		fn(msg.OwnerID)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping record changed message",
			"entity", msg.Entity,
			"record_id", msg.RecordID)
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record changed message",
			"entity", msg.Entity,
			"record_id", msg.RecordID,
			"op", msg.Op,
			"error", err)
	}
}
