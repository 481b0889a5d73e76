package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/cpgamebot/core/logger"
	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short while so an update that
// passes the middleware chain twice is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[int]time.Time)
	}
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = now
	return true
}

var received = &seenUpdates{ttl: 10 * time.Second}

// LoggerMiddleware stores the update's logging context (rid plus update,
// chat and user ids) on c and writes a sampled debug line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		fields := logger.Fields{UpdateID: upd.ID}
		chat := c.Chat()
		if chat != nil {
			fields.ChatID = chat.ID
		}
		user := c.Sender()
		if user != nil {
			fields.UserID = user.ID
		}
		fields.RID = logger.BuildRID(upd.ID, fields.ChatID, fields.UserID)
		c.Set("rid", fields.RID)

		ctx := logger.WithFields(logger.Background(), fields)
		ctx = logger.WithLogger(ctx, logger.For("tg"))
		tghelpers.StoreContext(c, ctx)

		if logger.SampleDebug() && received.first(upd.ID, time.Now()) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
			if m := upd.Message; m != nil {
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("text", logger.SanitizeLimit(t, 256)))
				}
				attrs = append(attrs, slog.String("media", mediaKind(m)))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}

func mediaKind(m *tele.Message) string {
	switch {
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	case m.Media() != nil:
		return "other"
	}
	return ""
}
