package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	coreconfig "github.com/m3rciful/cpgamebot/core/config"
)

const (
	defaultSampleKeep   = 1
	defaultSampleWindow = 50
)

// settings is the logging section of the config resolved to concrete values.
type settings struct {
	level    slog.Level
	format   logFormat
	keyOrder []string
	profile  string

	sampleKeep   int
	sampleWindow int
	trace        bool

	dir  string
	file string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		level:        slog.LevelInfo,
		format:       formatJSON,
		keyOrder:     append([]string(nil), defaultKeyOrder...),
		profile:      "prod",
		sampleKeep:   defaultSampleKeep,
		sampleWindow: defaultSampleWindow,
		trace:        envFlag("TRACE") || envFlag("LOG_TRACE"),
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "dev" || s.profile == "debug" {
			s.format = formatKV
		}
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}
	if keep, window, ok := parseSampleRatio(lc.DebugSample); ok {
		s.sampleKeep, s.sampleWindow = keep, window
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.file = strings.TrimSpace(lc.BotFile)
	return s
}

// openSinks returns stdout plus the configured log file, if any. A file that
// cannot be opened is reported on stderr and skipped.
func (s settings) openSinks() ([]io.Writer, []io.Closer, error) {
	sinks := []io.Writer{os.Stdout}
	if s.dir == "" || s.file == "" {
		return sinks, nil, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: create log dir %s: %v\n", s.dir, err)
		return sinks, nil, nil
	}
	path := filepath.Join(s.dir, s.file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: open log file %s: %v\n", path, err)
		return sinks, nil, nil
	}
	return append(sinks, f), []io.Closer{f}, nil
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// parseSampleRatio accepts "keep/window", a bare window ("50" keeps 1 of 50)
// or "0"/"off" to log every debug line.
func parseSampleRatio(raw string) (keep, window int, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return 0, 0, false
	case "0", "off", "all":
		return 0, 0, true
	}
	if k, w, found := strings.Cut(raw, "/"); found {
		keep, err1 := strconv.Atoi(strings.TrimSpace(k))
		window, err2 := strconv.Atoi(strings.TrimSpace(w))
		if err1 != nil || err2 != nil || keep <= 0 || window <= 0 {
			return 0, 0, false
		}
		return keep, window, true
	}
	window, err := strconv.Atoi(raw)
	if err != nil || window < 0 {
		return 0, 0, false
	}
	return 1, window, true
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
