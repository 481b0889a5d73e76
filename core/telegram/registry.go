package telegram

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/cpgamebot/core/logger"
	"github.com/m3rciful/cpgamebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry maps "/name" keys to command definitions.
type Registry struct {
	commands map[string]commands.Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds cmd under name. Invalid or duplicate entries are
// logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if reason := r.rejectReason(name, cmd); reason != "" {
		logger.Warn(logger.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}
	r.commands[name] = cmd
}

func (r *Registry) rejectReason(name string, cmd commands.Command) string {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return "bad_name"
	case cmd.Handler == nil:
		return "no_handler"
	case cmd.Description == "":
		return "no_description"
	}
	if _, dup := r.commands[name]; dup {
		return "duplicate"
	}
	return ""
}

// ListCommands returns the menu entries sorted by name. With visibleOnly
// hidden commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, c := range r.commands {
		if visibleOnly && c.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name[1:], Description: c.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves the leading "/word" of text to a registered command.
// A "@botname" suffix is ignored and aliases resolve to their canonical key.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	if r == nil {
		return "", commands.Command{}, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", commands.Command{}, false
	}
	word, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	if word == "/" {
		return "", commands.Command{}, false
	}
	if c, ok := r.commands[word]; ok {
		return word, c, true
	}
	for key, c := range r.commands {
		for _, alias := range c.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == word {
				return key, c, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands exposes the registered map; callers must not modify it.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetupCommands publishes the visible commands as the bot menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	cmds := reg.ListCommands(true)
	if err := bot.SetCommands(cmds); err != nil {
		logger.Error(logger.Background(), "tg.wire", "register.commands.set",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(logger.Background(), "tg.wire", "register.commands.set", slog.Int("count", len(cmds)))
}
