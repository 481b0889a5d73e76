package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/cpgamebot/core/logger"
	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds update kinds that skip the limit: command, message, media.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

type userLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[int64]time.Time
}

// allow records the attempt and reports whether it came at least interval
// after the previous accepted one.
func (l *userLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[userID] = now
	if len(l.last) > 4096 {
		for id, at := range l.last {
			if now.Sub(at) >= l.interval {
				delete(l.last, id)
			}
		}
	}
	return true
}

// UpdateKind classifies an update for rate limit exclusions.
func UpdateKind(c tele.Context) string {
	m := c.Message()
	switch {
	case m == nil:
		return "other"
	case m.Media() != nil:
		return "media"
	case strings.HasPrefix(m.Text, "/"):
		return "command"
	}
	return "message"
}

// RateLimitMiddleware drops updates from a user that arrive within
// Interval of their previous one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &userLimiter{interval: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if lim.allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("op", kind),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
