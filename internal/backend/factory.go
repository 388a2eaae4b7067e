package backend

import (
	"context"
	"fmt"

	"tally/internal/log"
	"tally/internal/storage"
	"tally/internal/store"
	"tally/internal/store/file"
	"tally/internal/store/memory"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case FileBackend:
		result, err = f.createFileBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheTTL > 0 {
		size := config.CacheSize
		if size <= 0 {
			size = defaultCacheSize
		}
		result.Cache = store.Cached(result.KV, size, config.CacheTTL)
		result.KV = result.Cache
		f.logger.Info("Enabled document cache", "ttl", config.CacheTTL.String(), "size", size)
	}

	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	key := config.DocumentKey
	if key == "" {
		key = store.DefaultKey
	}
	kv, err := memory.NewFromFile(key, config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", log.FieldBackend, MemoryBackend.String(), "seed_file", config.SeedFile)

	return &BackendResult{KV: kv}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	kv, err := file.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file backend: %w", err)
	}

	f.logger.Info("Initialized file backend", log.FieldBackend, FileBackend.String(), "data_directory", config.DataDirectory)

	return &BackendResult{KV: kv}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", log.FieldBackend, SQLiteBackend.String(), "db_path", config.SQLiteDBPath)

	return &BackendResult{KV: kv, Cleanup: kv.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	kv, err := storage.NewPostgresKV(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
	}

	f.logger.Info("Initialized postgres backend", log.FieldBackend, PostgresBackend.String())

	return &BackendResult{KV: kv, Cleanup: kv.Close}, nil
}
