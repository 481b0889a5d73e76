package config

import (
	"slices"
	"testing"
)

func valid() *Config {
	return &Config{Telegram: TelegramConfig{Token: "123:abc"}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := valid()
	cfg.Telegram.RunMode = " Polling "
	cfg.RateLimit.ExcludeUpdates = []string{" Command", "", "media"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run mode = %q", cfg.Telegram.RunMode)
	}
	if !slices.Equal(cfg.RateLimit.ExcludeUpdates, []string{UpdateCommand, UpdateMedia}) {
		t.Errorf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"no token", func(c *Config) { c.Telegram.Token = " " }},
		{"bad mode", func(c *Config) { c.Telegram.RunMode = "push" }},
		{"negative poll timeout", func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 }},
		{"webhook without url", func(c *Config) {
			c.Telegram.RunMode = RunModeWebhook
			c.Webhook = WebhookConfig{Listen: "0.0.0.0", Port: 8443}
		}},
		{"webhook without port", func(c *Config) {
			c.Telegram.RunMode = RunModeWebhook
			c.Webhook = WebhookConfig{URL: "https://bot.example.org", Listen: "0.0.0.0"}
		}},
		{"negative interval", func(c *Config) { c.RateLimit.IntervalMS = -5 }},
		{"unknown update kind", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"callback"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.edit(cfg)
			if err := Normalize(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if err := Normalize(nil); err == nil {
		t.Fatal("nil config should fail")
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		exclude  []string
		want     []string
	}{
		{"off keeps empty", 0, nil, []string{}},
		{"on defaults to messages and media", 500, nil, []string{UpdateMessage, UpdateMedia}},
		{"on with blank entries", 500, []string{" ", ""}, []string{UpdateMessage, UpdateMedia}},
		{"explicit list wins", 500, []string{"Command"}, []string{UpdateCommand}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			cfg.RateLimit = RateLimitConfig{IntervalMS: tt.interval, ExcludeUpdates: tt.exclude}
			if err := Normalize(cfg); err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if len(tt.want) == 0 && len(cfg.RateLimit.ExcludeUpdates) == 0 {
				return
			}
			if !slices.Equal(cfg.RateLimit.ExcludeUpdates, tt.want) {
				t.Fatalf("exclude = %v, want %v", cfg.RateLimit.ExcludeUpdates, tt.want)
			}
		})
	}
}
