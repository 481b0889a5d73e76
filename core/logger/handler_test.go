package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, format logFormat, emit func(ctx context.Context)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf})
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: w, format: format})
	emit(WithLogger(context.Background(), slog.New(h)))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrder(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%s missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestKVLineOrder(t *testing.T) {
	line := capture(t, formatKV, func(ctx context.Context) {
		ctx = WithFields(ctx, Fields{RID: "rid-123", UpdateID: 42, UserID: 7, ChatID: 9})
		Info(ctx, "app", "test.event", slog.String("status", "OK"), slog.String("zeta", "last"))
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "zeta=last"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v", tokens)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONLine(t *testing.T) {
	line := capture(t, formatJSON, func(ctx context.Context) {
		ctx = WithFields(ctx, Fields{RID: "12:34:56"})
		Error(ctx, "store", "store.open",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
			slog.Duration("duration", 1500*time.Microsecond),
		)
	})
	assertOrder(t, line, `{"ts":`, `"level":"ERROR"`, `"component":"store"`, `"event":"store.open"`,
		`"status":"fail"`, `"rid":"`+CompactRID("12:34:56")+`"`, `"rid_full":"12:34:56"`, `"ts_unix_nano"`, `"duration_ms":2`, `"err":"boom"`)
}

func TestKVLineOmitsFullRID(t *testing.T) {
	line := capture(t, formatKV, func(ctx context.Context) {
		Info(WithFields(ctx, Fields{RID: "123:456:789"}), "app", "rid.test")
	})
	if !strings.Contains(line, "rid=3f.co.lx") {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full belongs to JSON only: %s", line)
	}
}

func TestVerdictFieldsOrderAndPruning(t *testing.T) {
	line := capture(t, formatKV, func(ctx context.Context) {
		Info(ctx, "game", "game.submission",
			slog.Int("got", 12),
			slog.Int("expected", 11),
			slog.String("reason", "wrong_number"),
			slog.String("verdict", "rejected"),
			slog.String("status", "ok"),
			slog.String("err", ""),
		)
	})
	assertOrder(t, line, "component=game", "event=game.submission", "status=ok", "verdict=rejected", "reason=wrong_number", "expected=11", "got=12")
	if strings.Contains(line, "err=") {
		t.Fatalf("empty err should be pruned: %s", line)
	}
}

func TestGroupsAndDefaults(t *testing.T) {
	line := capture(t, formatKV, func(ctx context.Context) {
		l := FromContext(ctx).With("component", "").WithGroup("ocr")
		l.InfoContext(ctx, "read done", slog.String("text", "CP 1234"), slog.Group("box", slog.Int("w", 3)))
	})
	for _, want := range []string{"component=app", `event="read done"`, `ocr.text="CP 1234"`, "ocr.box.w=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("%s missing in %s", want, line)
		}
	}
}

func TestContextFieldsDoNotOverrideAttrs(t *testing.T) {
	line := capture(t, formatKV, func(ctx context.Context) {
		ctx = WithFields(ctx, Fields{ChatID: 1})
		ctx = WithHandler(ctx, "cmd:/number")
		Info(ctx, "game", "x", slog.Int64("chat_id", 2))
	})
	if !strings.Contains(line, "chat_id=2") || strings.Contains(line, "chat_id=1") {
		t.Fatalf("explicit chat_id should win: %s", line)
	}
	if !strings.Contains(line, "handler=cmd:/number") {
		t.Fatalf("handler missing: %s", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf})
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: w, format: formatKV})
	ctx := WithLogger(context.Background(), slog.New(h))
	Info(ctx, "app", "dropped")
	Warn(ctx, "app", "kept")
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if strings.Contains(got, "dropped") || !strings.Contains(got, "level=WARN") {
		t.Fatalf("unexpected output %q", got)
	}
	_ = w.Close()
}

func TestLogWithoutLoggerIsNoop(t *testing.T) {
	Info(context.Background(), "app", "nothing")
	if FromContext(nil) != base.Load() {
		t.Fatal("nil context should resolve to the global logger")
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Fatalf("Status(nil) = %q", got)
	}
	if got := Status(io.EOF); got != "fail" {
		t.Fatalf("Status(err) = %q", got)
	}
}
