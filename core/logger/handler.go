package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type lineWriter interface {
	Write(p []byte) error
}

type handlerConfig struct {
	level    slog.Leveler
	writer   lineWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders flat lines with a stable key order. Groups are
// flattened into dotted keys and durations are written as *_ms integers.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	preset map[string]any
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	rec := make(map[string]any, len(h.preset)+12)
	rec["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	rec["level"] = levelName(r.Level.String())
	if h.cfg.format == formatJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}
	for k, v := range h.preset {
		rec[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		put(rec, h.prefix, a)
		return true
	})
	for _, a := range FieldsFrom(ctx).attrs() {
		if _, set := rec[a.Key]; !set {
			put(rec, "", a)
		}
	}
	h.finish(rec, r.Message)

	var line []byte
	if h.cfg.format == formatJSON {
		line = h.encodeJSON(rec)
	} else {
		line = h.encodeKV(rec)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = make(map[string]any, len(h.preset)+len(attrs))
	for k, v := range h.preset {
		clone.preset[k] = v
	}
	for _, a := range attrs {
		put(clone.preset, h.prefix, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = dotted(h.prefix, name)
	return &clone
}

// finish fills the required keys and drops empty values.
func (h *structuredHandler) finish(rec map[string]any, msg string) {
	if rid, ok := rec["rid"].(string); ok {
		if short := CompactRID(rid); short != rid {
			rec["rid"] = short
			if h.cfg.format == formatJSON {
				if _, set := rec["rid_full"]; !set {
					rec["rid_full"] = rid
				}
			}
		}
	}
	if ev, _ := rec["event"].(string); ev == "" {
		rec["event"] = msg
		if msg == "" {
			rec["event"] = "unknown"
		}
	}
	if c, _ := rec["component"].(string); c == "" {
		rec["component"] = "app"
	}
	if s, ok := rec["status"].(string); ok {
		rec["status"] = statusValue(s)
	}
	for k, v := range rec {
		if v == nil || v == "" {
			delete(rec, k)
		}
	}
}

func put(rec map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := dotted(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			put(rec, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindString:
		rec[key] = strings.TrimSpace(v.String())
	case slog.KindInt64:
		rec[key] = v.Int64()
	case slog.KindUint64:
		rec[key] = v.Uint64()
	case slog.KindFloat64:
		rec[key] = v.Float64()
	case slog.KindBool:
		rec[key] = v.Bool()
	case slog.KindDuration:
		rec[msKey(key)] = RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		rec[key] = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			rec[key] = x.Error()
		case time.Duration:
			rec[msKey(key)] = RoundMS(x).Milliseconds()
		case fmt.Stringer:
			rec[key] = x.String()
		default:
			rec[key] = fmt.Sprint(x)
		}
	}
}

func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func dotted(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func (h *structuredHandler) sortedKeys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := h.rank[keys[i]]
		rj, jok := h.rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (h *structuredHandler) encodeJSON(rec map[string]any) []byte {
	buf := []byte{'{'}
	for i, k := range h.sortedKeys(rec) {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		data, err := json.Marshal(rec[k])
		if err != nil {
			data = []byte(strconv.Quote(fmt.Sprint(rec[k])))
		}
		buf = append(buf, data...)
	}
	return append(buf, '}')
}

func (h *structuredHandler) encodeKV(rec map[string]any) []byte {
	var b strings.Builder
	for i, k := range h.sortedKeys(rec) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}
