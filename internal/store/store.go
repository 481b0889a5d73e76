// Package store persists per-chat game state.
package store

import (
	"context"
	"errors"

	"github.com/m3rciful/cpgamebot/internal/game"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

var (
	// ErrUnknownBackend is returned for an unsupported store.backend value.
	ErrUnknownBackend = errors.New("store: unknown backend")
	// ErrConflict means a concurrent writer kept winning an optimistic update.
	ErrConflict = errors.New("store: update conflict")
)

// UpdateFunc computes the next state from the current one.
// Returning an error aborts the update and nothing is written.
type UpdateFunc func(game.State) (game.State, error)

// Store loads and atomically updates chat game state.
// A chat that was never stored loads as the zero State.
type Store interface {
	Load(ctx context.Context, chatID int64) (game.State, error)
	Update(ctx context.Context, chatID int64, fn UpdateFunc) (game.State, error)
	Close() error
}
