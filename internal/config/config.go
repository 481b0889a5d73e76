// Package config loads the bot configuration: the shared core sections plus
// the storage, OCR, game and metrics settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/cpgamebot/core/config"
	coredatabase "github.com/m3rciful/cpgamebot/core/database"
	"github.com/m3rciful/cpgamebot/internal/ocr"
	"github.com/m3rciful/cpgamebot/internal/store"
)

const (
	defaultNoticeTTL         = 30 * time.Second
	defaultMaxImageBytes     = 10 << 20
	defaultEvaluationTimeout = time.Minute
	defaultOCRConcurrency    = 2
)

// OCRConfig controls screenshot reading.
type OCRConfig struct {
	Language      string     `yaml:"language" envconfig:"OCR_LANGUAGE"`
	MaxConcurrent int        `yaml:"max_concurrent" envconfig:"OCR_MAX_CONCURRENT"`
	Grayscale     bool       `yaml:"grayscale" envconfig:"OCR_GRAYSCALE"`
	Region        ocr.Region `yaml:"region"`
}

// GameConfig holds chat-facing game settings.
type GameConfig struct {
	// NoticeTTL is how long rejection notices stay in the chat.
	NoticeTTL         time.Duration `yaml:"notice_ttl" envconfig:"GAME_NOTICE_TTL"`
	MaxImageBytes     int64         `yaml:"max_image_bytes" envconfig:"GAME_MAX_IMAGE_BYTES"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout" envconfig:"GAME_EVALUATION_TIMEOUT"`
}

// MetricsConfig exposes prometheus metrics when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Store    store.Config        `yaml:"store"`
	OCR      OCRConfig           `yaml:"ocr"`
	Game     GameConfig          `yaml:"game"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core configuration to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	backend, err := store.NormalizeBackend(cfg.Store.Backend)
	if err != nil {
		return fmt.Errorf("store.backend: %w", err)
	}
	cfg.Store.Backend = backend
	switch backend {
	case store.BackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres store")
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	case store.BackendRedis:
		if strings.TrimSpace(cfg.Store.RedisAddr) == "" {
			return fmt.Errorf("store.redis_addr is required for the redis store")
		}
	}

	cfg.OCR.Language = strings.TrimSpace(cfg.OCR.Language)
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = ocr.DefaultLanguage
	}
	if cfg.OCR.MaxConcurrent < 0 {
		return fmt.Errorf("ocr.max_concurrent must be >= 0")
	}
	if cfg.OCR.MaxConcurrent == 0 {
		cfg.OCR.MaxConcurrent = defaultOCRConcurrency
	}
	if cfg.OCR.Region.IsZero() {
		cfg.OCR.Region = ocr.DefaultRegion
	}
	if err := cfg.OCR.Region.Validate(); err != nil {
		return fmt.Errorf("ocr.region: %w", err)
	}

	if cfg.Game.NoticeTTL < 0 {
		return fmt.Errorf("game.notice_ttl must be >= 0")
	}
	if cfg.Game.NoticeTTL == 0 {
		cfg.Game.NoticeTTL = defaultNoticeTTL
	}
	if cfg.Game.MaxImageBytes <= 0 {
		cfg.Game.MaxImageBytes = defaultMaxImageBytes
	}
	if cfg.Game.EvaluationTimeout <= 0 {
		cfg.Game.EvaluationTimeout = defaultEvaluationTimeout
	}

	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	return nil
}
