package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	coreconfig "github.com/m3rciful/cpgamebot/core/config"
	coredatabase "github.com/m3rciful/cpgamebot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	connected := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatalf("database touched without UseDatabase: connected=%v db=%v", connected, res.DB)
	}
}

func TestRunWithDatabase(t *testing.T) {
	var migrated bool
	res, err := Run(Options{
		Config:      &coreconfig.Config{},
		UseDatabase: true,
		LoggerInit:  noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.Open("sqlite", ":memory:")
		},
		Migrate: func(coredatabase.Config) error {
			migrated = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	defer res.DB.Close()
	if !migrated || res.DB == nil {
		t.Fatalf("migrated=%v db=%v", migrated, res.DB)
	}
}

func TestRunFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		opts Options
	}{
		{"nil config", Options{}},
		{"logger", Options{Config: &coreconfig.Config{}, LoggerInit: func(*coreconfig.Config) error { return boom }}},
		{"connect", Options{
			Config: &coreconfig.Config{}, UseDatabase: true, LoggerInit: noLogger,
			Connect: func(coredatabase.Config) (*sqlx.DB, error) { return nil, boom },
		}},
		{"migrate", Options{
			Config: &coreconfig.Config{}, UseDatabase: true, LoggerInit: noLogger,
			Connect: func(coredatabase.Config) (*sqlx.DB, error) { return sqlx.Open("sqlite", ":memory:") },
			Migrate: func(coredatabase.Config) error { return boom },
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(tt.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
