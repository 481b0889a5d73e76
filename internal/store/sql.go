package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/cpgamebot/core/logger"
	"github.com/m3rciful/cpgamebot/internal/game"
)

const (
	selectStateSQL = `SELECT active, start_number, next_number, last_submitter_id
FROM channel_games WHERE chat_id = ?`

	upsertStateSQL = `INSERT INTO channel_games (chat_id, active, start_number, next_number, last_submitter_id, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (chat_id) DO UPDATE SET
	active = excluded.active,
	start_number = excluded.start_number,
	next_number = excluded.next_number,
	last_submitter_id = excluded.last_submitter_id,
	updated_at = excluded.updated_at`

	// sqliteSchemaSQL mirrors migrations/000001_channel_games.up.sql.
	sqliteSchemaSQL = `CREATE TABLE IF NOT EXISTS channel_games (
	chat_id BIGINT PRIMARY KEY,
	active BOOLEAN NOT NULL DEFAULT FALSE,
	start_number INTEGER NULL,
	next_number INTEGER NULL,
	last_submitter_id BIGINT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
)

// SQLStore keeps game state in the channel_games table.
type SQLStore struct {
	db        *sqlx.DB
	closeDB   bool
	loadSQL   string
	selectSQL string
	upsertSQL string
}

// NewPostgres wraps a connected postgres pool. The caller keeps ownership of db.
func NewPostgres(db *sqlx.DB) *SQLStore {
	return newSQLStore(db, true, false)
}

// OpenSQLite opens (or creates) a sqlite database file and ensures the schema.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: sqlite schema: %w", err)
	}
	return newSQLStore(db, false, true), nil
}

func newSQLStore(db *sqlx.DB, lockRows, closeDB bool) *SQLStore {
	sel := selectStateSQL
	if lockRows {
		sel += " FOR UPDATE"
	}
	return &SQLStore{
		db:        db,
		closeDB:   closeDB,
		loadSQL:   db.Rebind(selectStateSQL),
		selectSQL: db.Rebind(sel),
		upsertSQL: db.Rebind(upsertStateSQL),
	}
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, chatID int64) (game.State, error) {
	var st game.State
	err := s.db.GetContext(ctx, &st, s.loadSQL, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return game.State{}, nil
	}
	if err != nil {
		return game.State{}, fmt.Errorf("store: load chat %d: %w", chatID, err)
	}
	return st, nil
}

// Update implements Store inside a single transaction; postgres rows are
// locked with SELECT ... FOR UPDATE for the duration of fn.
func (s *SQLStore) Update(ctx context.Context, chatID int64, fn UpdateFunc) (game.State, error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return game.State{}, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur game.State
	if err := tx.GetContext(ctx, &cur, s.selectSQL, chatID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return game.State{}, fmt.Errorf("store: load chat %d: %w", chatID, err)
	}

	next, err := fn(cur)
	if err != nil {
		return game.State{}, err
	}

	if _, err := tx.ExecContext(ctx, s.upsertSQL,
		chatID, next.Active, next.Start, next.Number, next.LastSubmitterID,
	); err != nil {
		return game.State{}, fmt.Errorf("store: save chat %d: %w", chatID, err)
	}
	if err := tx.Commit(); err != nil {
		return game.State{}, fmt.Errorf("store: commit chat %d: %w", chatID, err)
	}

	logger.Debug(ctx, "store", "store.update",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("phase", string(next.Phase())),
		slog.Duration("duration", logger.Took(start)),
	)
	return next, nil
}

// Close releases the database when the store opened it.
func (s *SQLStore) Close() error {
	if !s.closeDB {
		return nil
	}
	return s.db.Close()
}
