// Package bootstrap brings up the infrastructure every bot needs before its
// own wiring: the logger and, optionally, a migrated postgres pool.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/cpgamebot/core/config"
	coredatabase "github.com/m3rciful/cpgamebot/core/database"
	"github.com/m3rciful/cpgamebot/core/logger"
)

type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// UseDatabase enables the postgres pool and migrations.
	UseDatabase bool

	// Hooks default to the core implementations.
	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result holds what Run brought up. DB is nil without UseDatabase.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, then the database when enabled. A database
// that fails to migrate is closed before returning.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	res := &Result{}
	if !opts.UseDatabase {
		return res, nil
	}

	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := opts.Migrate(opts.Database); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations: %w", err), db.Close())
	}
	res.DB = db
	return res, nil
}
