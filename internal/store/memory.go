package store

import (
	"context"
	"sync"

	"github.com/m3rciful/cpgamebot/internal/game"
)

type memoryStore struct {
	mu    sync.Mutex
	chats map[int64]game.State
}

// NewMemory returns a process-local Store for tests and development.
func NewMemory() Store {
	return &memoryStore{chats: make(map[int64]game.State)}
}

func (m *memoryStore) Load(_ context.Context, chatID int64) (game.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chats[chatID].Clone(), nil
}

func (m *memoryStore) Update(ctx context.Context, chatID int64, fn UpdateFunc) (game.State, error) {
	if err := ctx.Err(); err != nil {
		return game.State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.chats[chatID].Clone())
	if err != nil {
		return game.State{}, err
	}
	m.chats[chatID] = next.Clone()
	return next, nil
}

func (m *memoryStore) Close() error { return nil }
