package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/cpgamebot/core/logger"
)

const (
	connectTimeout = 30 * time.Second
	retryEvery     = 2 * time.Second
)

// Connect opens the postgres pool. It keeps retrying for a while so the bot
// can start alongside a database that is still booting.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(logger.Background(), connectTimeout)
	defer cancel()
	return connect(ctx, cfg)
}

func connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	attempts := 0
	for {
		attempts++
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL())
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxConnections)
			db.SetMaxIdleConns(cfg.MaxConnections)
			logger.Info(ctx, "db", "db.connect",
				slog.String("status", "ok"),
				slog.String("dsn", cfg.Redacted()),
				slog.Int("pool_open", cfg.MaxConnections),
				slog.Int("attempts", attempts),
				slog.Duration("duration", logger.Took(start)),
			)
			return db, nil
		}

		logger.Debug(ctx, "db", "db.connect.retry",
			slog.Int("attempt", attempts),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			logger.Error(ctx, "db", "db.connect",
				slog.String("status", "fail"),
				slog.String("dsn", cfg.Redacted()),
				slog.Int("attempts", attempts),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("db connect: %w", err)
		case <-time.After(retryEvery):
		}
	}
}
