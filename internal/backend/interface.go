package backend

import (
	"context"
	"time"

	"tally/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the KV instance and an optional cleanup function.
type BackendResult struct {
	KV      store.KV
	Cleanup CleanupFunc
	// Cache is set when the KV is wrapped in a read-through cache, so the
	// caller can register it with a janitor.
	Cache *store.CachedKV
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// Memory backend
	SeedFile    string
	DocumentKey string

	// File backend
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string

	// Postgres backend
	PostgresURL string

	// Read-through cache; disabled when CacheTTL is zero.
	CacheTTL  time.Duration
	CacheSize int
}

// BackendType represents the type of backend.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
