package helpers

import (
	"context"

	"github.com/m3rciful/cpgamebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext caches ctx on c for later BuildContext calls.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context cached on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the logging context of the update behind c, creating
// and caching it on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	f := logger.Fields{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		f.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		f.UserID = u.ID
	}
	f.RID, _ = c.Get("rid").(string)
	if f.RID == "" {
		f.RID = logger.BuildRID(f.UpdateID, f.ChatID, f.UserID)
	}
	ctx := logger.WithLogger(logger.WithFields(context.Background(), f), logger.For("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the cached context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
