package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly restricts the command to the configured admin and chat moderators.
	AdminOnly bool
	Hidden    bool
	// Aliases are extra command names routed to the same handler, e.g. "resume".
	Aliases []string
}
