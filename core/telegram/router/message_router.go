package router

import (
	"log/slog"

	tg "github.com/m3rciful/cpgamebot/core/telegram"
	"github.com/m3rciful/cpgamebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions controls how plain chat messages are routed.
type MessageOptions struct {
	// OnMessage receives every message that is not a registered command:
	// text, media, and the kinds telebot routes to their own endpoints
	// (contact, location, venue, dice, game, poll).
	OnMessage tele.HandlerFunc
}

// messageEndpoints lists every endpoint a chat message can arrive on.
// Photos, audio, video and the like fall back to OnMedia when they have no
// handler of their own; the kinds below never do.
var messageEndpoints = []string{
	tele.OnText,
	tele.OnPhoto,
	tele.OnDocument,
	tele.OnMedia,
	tele.OnContact,
	tele.OnLocation,
	tele.OnVenue,
	tele.OnDice,
	tele.OnGame,
	tele.OnPoll,
}

// MessageRoutes builds handlers for text and media routing. Text naming a
// registered command is logged and skipped.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	handler := func(c tele.Context) error {
		m := c.Message()
		if m == nil {
			// Poll state updates share OnPoll but carry no message.
			return nil
		}
		if m.Text != "" && reg != nil {
			if key, _, ok := reg.LookupCommand(m.Text); ok {
				newHandled("command_text", slog.String("op", key)).skip(c)
				return nil
			}
		}

		h := newHandled("message." + messageKind(m))
		if opts.OnMessage == nil {
			h.skip(c)
			return nil
		}
		return h.run(c, opts.OnMessage)
	}

	wrapped := middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
	routes := make([]tg.Route, 0, len(messageEndpoints))
	for _, ep := range messageEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrapped})
	}
	return routes
}

func messageKind(m *tele.Message) string {
	switch {
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	case m.Text != "":
		return "text"
	case m.Media() != nil:
		return "media"
	}
	return "other"
}
