package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/cpgamebot/core/logger"
	"github.com/m3rciful/cpgamebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes the Send helpers through d. With nil they call the
// Bot API inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver hands run to the dispatcher, or runs it inline when none is set or
// its queue cannot take the job.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.inline",
			slog.String("action", action),
			slog.String("reason", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends text without a parse mode.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := make([]any, 0, 1)
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// SendMDV2 sends text parsed as MarkdownV2. Callers escape user content.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}

// SendEphemeral sends text to the current chat and deletes it after ttl.
func SendEphemeral(c tele.Context, text string, ttl time.Duration, opts *tele.SendOptions) error {
	chat := c.Chat()
	if chat == nil {
		return errors.New("helpers: ephemeral message needs a chat")
	}
	bot := c.Bot()
	ctx := BuildContext(c)
	return deliver(c, "send.ephemeral", "sendMessage", func() error {
		args := []any{}
		if opts != nil {
			args = append(args, opts)
		}
		msg, err := bot.Send(chat, text, args...)
		if err != nil || ttl <= 0 {
			return err
		}
		time.AfterFunc(ttl, func() {
			if err := bot.Delete(msg); err != nil {
				logger.Debug(ctx, "tg.sender", "ephemeral.delete",
					slog.String("status", "fail"),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		})
		return nil
	})
}
