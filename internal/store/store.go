// Package store persists the account document in a key-value backend.
//
// The whole account lives under one key and every save rewrites it; there is
// no per-expense addressing, no versioning and no cross-process locking, so two
// processes sharing a backend race with last-write-wins semantics.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/log"
)

// DefaultKey is the storage key the document is kept under.
const DefaultKey = "userData"

// KV is the raw key-value backend.
type KV interface {
	// Get returns the stored bytes; found is false when the key was never set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put overwrites the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
}

// Store loads and saves the account state as a whole.
type Store interface {
	Load(ctx context.Context) (core.AccountState, error)
	Save(ctx context.Context, state core.AccountState) error
}

// DocumentStore implements Store over a KV backend.
type DocumentStore struct {
	kv     KV
	key    string
	logger *log.Logger
}

var _ Store = (*DocumentStore)(nil)

// NewDocumentStore returns a store keeping the document under key (DefaultKey
// when empty).
func NewDocumentStore(kv KV, key string, logger *log.Logger) *DocumentStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &DocumentStore{kv: kv, key: key, logger: logger.WithComponent(log.ComponentStore)}
}

// Key returns the storage key in use.
func (s *DocumentStore) Key() string {
	return s.key
}

// Load returns the stored state. A missing, empty or undecodable document
// yields core.ZeroState() without error; only backend failures are returned.
func (s *DocumentStore) Load(ctx context.Context) (core.AccountState, error) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return core.AccountState{}, fmt.Errorf("read document %q: %w", s.key, err)
	}
	if !found || len(raw) == 0 {
		s.logger.DebugContext(ctx, "No stored document, using zero state", log.FieldKey, s.key)
		return core.ZeroState(), nil
	}
	state, err := Decode(raw)
	if err != nil {
		s.logger.LogFields(ctx, slog.LevelWarn, "Stored document is corrupt, using zero state",
			log.NewFields().WithError(err).WithOperation(log.OpRead).With(log.FieldKey, s.key))
		return core.ZeroState(), nil
	}
	return state, nil
}

// Save overwrites the whole document.
func (s *DocumentStore) Save(ctx context.Context, state core.AccountState) error {
	raw, err := Encode(state)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write document %q: %w", s.key, err)
	}
	s.logger.DebugContext(ctx, "Document saved",
		log.FieldKey, s.key,
		log.FieldCount, len(state.Expenses),
		log.FieldBalance, state.Balance.String())
	return nil
}
