// Package backend builds the record store, and the collaborators that hang
// off it, from configuration.
package backend

import (
	"context"
	"slices"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds what a command needs to serve requests. Publisher and
// Runs are nil when the backend has no broker or no run history.
type BackendResult struct {
	Store     store.Store
	Publisher services.EventPublisher
	Runs      services.RunRecorder
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional broker for record-changed events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	SeedFile  string
	SeedOwner string

	Clock core.Clock
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	return slices.Contains(BackendTypes(), bt)
}
