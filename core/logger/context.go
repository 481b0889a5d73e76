package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	fieldsKey ctxKey = iota
	loggerKey
)

// Fields are the update identifiers attached to every line logged with a context.
type Fields struct {
	RID      string
	UpdateID int
	ChatID   int64
	UserID   int64
	Handler  string
}

// merge overlays the non-zero values of o.
func (f Fields) merge(o Fields) Fields {
	if o.RID != "" {
		f.RID = o.RID
	}
	if o.UpdateID != 0 {
		f.UpdateID = o.UpdateID
	}
	if o.ChatID != 0 {
		f.ChatID = o.ChatID
	}
	if o.UserID != 0 {
		f.UserID = o.UserID
	}
	if o.Handler != "" {
		f.Handler = o.Handler
	}
	return f
}

func (f Fields) attrs() []slog.Attr {
	var out []slog.Attr
	if f.RID != "" {
		out = append(out, slog.String("rid", f.RID))
	}
	if f.UpdateID != 0 {
		out = append(out, slog.Int("update_id", f.UpdateID))
	}
	if f.ChatID != 0 {
		out = append(out, slog.Int64("chat_id", f.ChatID))
	}
	if f.UserID != 0 {
		out = append(out, slog.Int64("user_id", f.UserID))
	}
	if f.Handler != "" {
		out = append(out, slog.String("handler", f.Handler))
	}
	return out
}

// WithFields returns ctx carrying f merged over any fields already present.
func WithFields(ctx context.Context, f Fields) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, fieldsKey, FieldsFrom(ctx).merge(f))
}

// FieldsFrom returns the fields stored in ctx.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey).(Fields)
	return f
}

// WithHandler records the handler name for downstream lines.
func WithHandler(ctx context.Context, handler string) context.Context {
	return WithFields(ctx, Fields{Handler: handler})
}

// WithLogger stores l in ctx; Log prefers it over the global logger.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return base.Load()
}
