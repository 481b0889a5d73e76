package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/cpgamebot/core/logger"
)

// Config selects and configures the backend.
type Config struct {
	Backend       string `yaml:"backend" envconfig:"STORE_BACKEND"`
	SQLitePath    string `yaml:"sqlite_path" envconfig:"STORE_SQLITE_PATH"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" envconfig:"STORE_KEY_PREFIX"`
}

// NormalizeBackend lowercases the backend name and defaults it to postgres.
func NormalizeBackend(name string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(name))
	switch b {
	case "":
		return BackendPostgres, nil
	case "pg", "postgresql":
		return BackendPostgres, nil
	case "sqlite3":
		return BackendSQLite, nil
	case BackendPostgres, BackendSQLite, BackendRedis, BackendMemory:
		return b, nil
	}
	return "", fmt.Errorf("%w %q; allowed: postgres, sqlite, redis, memory", ErrUnknownBackend, name)
}

// UsesPostgres reports whether the backend needs the shared postgres pool.
func (c Config) UsesPostgres() bool {
	b, err := NormalizeBackend(c.Backend)
	return err == nil && b == BackendPostgres
}

// Open builds the configured Store. db is required only for postgres.
func Open(ctx context.Context, cfg Config, db *sqlx.DB) (Store, error) {
	backend, err := NormalizeBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var st Store
	switch backend {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("store: postgres backend requires a database connection")
		}
		st = NewPostgres(db)
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "cpgame.db"
		}
		st, err = OpenSQLite(ctx, path)
	case BackendRedis:
		st, err = OpenRedis(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	case BackendMemory:
		st = NewMemory()
	}
	if err != nil {
		logger.Error(ctx, "store", "store.open",
			slog.String("status", "fail"),
			slog.String("backend", backend),
			slog.String("err", err.Error()),
		)
		return nil, err
	}

	logger.Info(ctx, "store", "store.open",
		slog.String("status", "ok"),
		slog.String("backend", backend),
	)
	return st, nil
}
