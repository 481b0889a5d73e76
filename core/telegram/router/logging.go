package router

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/cpgamebot/core/logger"
	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"
	"github.com/m3rciful/cpgamebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handled describes one dispatched update for its summary line.
type handled struct {
	name   string
	start  time.Time
	status string
	extra  []slog.Attr
}

func newHandled(name string, extra ...slog.Attr) handled {
	return handled{name: name, start: time.Now(), extra: extra}
}

// run calls fn under the handler's logging context and writes the summary.
func (h handled) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, h.name)
	err := fn(c)
	h.log(c, err)
	return err
}

func (h handled) skip(c tele.Context) {
	h.status = "skip"
	h.log(c, nil)
}

func (h handled) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, h.name)
	replies, deleted := middleware.GetCounters(c)
	status := h.status
	if status == "" {
		status = logger.Status(err)
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Duration("duration", logger.Took(h.start)),
		slog.Int("replies", replies),
		slog.Bool("deleted", deleted),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", append(attrs, h.extra...)...)
}

func normalizeHandlerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(strings.TrimPrefix(name, "/"), " ", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

// errorCode is the error's own Code() when it has one, else its type name.
func errorCode(err error) string {
	if c, ok := err.(interface{ Code() string }); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(name)
}
