package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

var errBotNotReady = errors.New("app: telegram bot not started")

// chatOps covers the Bot API calls a verdict needs beyond replying.
type chatOps interface {
	React(c tele.Context, emoji string) error
	Notice(c tele.Context, text string, ttl time.Duration) error
	MemberName(c tele.Context, userID int64) string
}

type teleOps struct{}

func (teleOps) React(c tele.Context, emoji string) error {
	return c.Bot().React(c.Chat(), c.Message(), emojiReaction(emoji))
}

func emojiReaction(emoji string) tele.Reactions {
	return tele.Reactions{Reactions: []tele.Reaction{{Type: tele.ReactionTypeEmoji, Emoji: emoji}}}
}

func (teleOps) Notice(c tele.Context, text string, ttl time.Duration) error {
	return tghelpers.SendEphemeral(c, text, ttl, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
}

func (teleOps) MemberName(c tele.Context, userID int64) string {
	member, err := c.Bot().ChatMemberOf(c.Chat(), &tele.User{ID: userID})
	if err != nil || member == nil {
		return ""
	}
	return displayName(member.User)
}

// botFetcher downloads attachments through the running bot.
type botFetcher struct {
	bot atomic.Pointer[tele.Bot]
}

func (f *botFetcher) attach(b *tele.Bot) {
	f.bot.Store(b)
}

func (f *botFetcher) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	b := f.bot.Load()
	if b == nil {
		return nil, errBotNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.File(&tele.File{FileID: fileID})
}
