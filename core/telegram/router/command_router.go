package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/cpgamebot/core/logger"
	tg "github.com/m3rciful/cpgamebot/core/telegram"
	"github.com/m3rciful/cpgamebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID        int64
	ChatModerators bool
	Lookup         middleware.MemberLookup
	OnAdminReject  tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Every alias gets its own route bound to the same handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:        opts.AdminID,
		ChatModerators: opts.ChatModerators,
		Lookup:         opts.Lookup,
		OnReject:       opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := summarize(normalizeHandlerName(cmd), def.Handler)
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if !strings.HasPrefix(alias, "/") {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(logger.Background(), "tg.wire", "commands.routed",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
	)

	return routes
}

func summarize(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return newHandled(name).run(c, h)
	}
}
