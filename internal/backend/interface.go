// Package backend selects and constructs the persistence gateway at startup.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/gateway"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// Result contains the constructed store, the optional AMQP client, and a
// cleanup function. Events is nil when no broker is configured.
type Result struct {
	Store   gateway.Store
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// BackendType selects the persistence implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is known.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
