package middleware

import (
	"log/slog"

	"github.com/m3rciful/cpgamebot/core/logger"
	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MemberLookup resolves the sender's membership in the current chat.
type MemberLookup func(c tele.Context) (*tele.ChatMember, error)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID int64
	// ChatModerators also admits the chat creator and administrators
	// allowed to change chat info.
	ChatModerators bool
	Lookup         MemberLookup
	OnReject       tele.HandlerFunc
}

// LookupSender asks the Bot API for the sender's chat membership.
func LookupSender(c tele.Context) (*tele.ChatMember, error) {
	return c.Bot().ChatMemberOf(c.Chat(), c.Sender())
}

// IsModerator reports whether member may run moderator commands.
func IsModerator(member *tele.ChatMember) bool {
	if member == nil {
		return false
	}
	switch member.Role {
	case tele.Creator:
		return true
	case tele.Administrator:
		return member.CanChangeInfo
	}
	return false
}

// AdminOnlyMiddleware ensures that only the admin user (and, when enabled,
// chat moderators) can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = LookupSender
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if allowed(c, opts, lookup) {
				return next(c)
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}

func allowed(c tele.Context, opts AdminOptions, lookup MemberLookup) bool {
	sender := c.Sender()
	if sender == nil {
		return false
	}
	if opts.AdminID != 0 && sender.ID == opts.AdminID {
		return true
	}
	if !opts.ChatModerators {
		return opts.AdminID == 0
	}
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return false
	}
	member, err := lookup(c)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), "tg", "access.lookup_failed",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chat.ID),
			slog.Int64("user_id", sender.ID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return false
	}
	return IsModerator(member)
}
