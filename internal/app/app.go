// Package app wires the CP game into the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/cpgamebot/core/bootstrap"
	coredatabase "github.com/m3rciful/cpgamebot/core/database"
	"github.com/m3rciful/cpgamebot/core/logger"
	coretelegram "github.com/m3rciful/cpgamebot/core/telegram"
	"github.com/m3rciful/cpgamebot/core/telegram/router"
	"github.com/m3rciful/cpgamebot/internal/config"
	"github.com/m3rciful/cpgamebot/internal/cpgame"
	"github.com/m3rciful/cpgamebot/internal/metrics"
	"github.com/m3rciful/cpgamebot/internal/ocr"
	"github.com/m3rciful/cpgamebot/internal/ocr/tesseract"
	"github.com/m3rciful/cpgamebot/internal/store"
	"github.com/m3rciful/cpgamebot/migrations"
)

// App holds the wired game service and its infrastructure.
type App struct {
	cfg     *config.Config
	db      *sqlx.DB
	store   store.Store
	service *cpgame.Service
	metrics *metrics.Metrics
	fetcher *botFetcher
	ops     chatOps
}

// Bootstrap initializes logging, storage and OCR for cfg. It refuses to
// start when the OCR engine or its language data is missing.
func Bootstrap(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:      &cfg.Config,
		Database:    cfg.Database,
		UseDatabase: cfg.Store.UsesPostgres(),
		Migrate:     coredatabase.Migrator(migrations.FS),
	})
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if res.DB != nil {
			_ = res.DB.Close()
		}
	}

	ctx := logger.Background()
	engine := tesseract.New()
	if err := engine.Check(cfg.OCR.Language); err != nil {
		logger.Error(ctx, "ocr", "ocr.check",
			slog.String("status", "fail"),
			slog.String("lang", cfg.OCR.Language),
			slog.String("err", err.Error()),
		)
		closeDB()
		return nil, err
	}
	extractor, err := ocr.NewExtractor(engine, ocr.Options{
		Region:        cfg.OCR.Region,
		Language:      cfg.OCR.Language,
		Grayscale:     cfg.OCR.Grayscale,
		MaxConcurrent: cfg.OCR.MaxConcurrent,
	})
	if err != nil {
		closeDB()
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store, res.DB)
	if err != nil {
		closeDB()
		return nil, err
	}

	m := metrics.New()
	fetcher := &botFetcher{}
	svc, err := cpgame.NewService(cpgame.Options{
		Store:         st,
		Extractor:     extractor,
		Fetcher:       fetcher,
		Metrics:       m,
		MaxImageBytes: cfg.Game.MaxImageBytes,
	})
	if err != nil {
		_ = st.Close()
		closeDB()
		return nil, err
	}

	a := newApp(cfg, svc, teleOps{})
	a.db = res.DB
	a.store = st
	a.metrics = m
	a.fetcher = fetcher
	return a, nil
}

func newApp(cfg *config.Config, svc *cpgame.Service, ops chatOps) *App {
	return &App{cfg: cfg, service: svc, ops: ops, fetcher: &botFetcher{}}
}

// TelegramRunOptions builds routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:        a.cfg.Telegram.AdminID,
		ChatModerators: true,
	})
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		OnMessage: a.onMessage,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Bot == nil {
		return errBotNotReady
	}
	a.fetcher.attach(rt.Bot)

	if listen := a.cfg.Metrics.Listen; listen != "" && a.metrics != nil {
		go func() {
			if err := a.metrics.Serve(ctx, listen); err != nil {
				logger.Error(ctx, "metrics", "metrics.serve",
					slog.String("status", "fail"),
					slog.String("listen", listen),
					slog.String("err", err.Error()),
				)
			}
		}()
	}
	return nil
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
