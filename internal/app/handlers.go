package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/cpgamebot/core/logger"
	coretelegram "github.com/m3rciful/cpgamebot/core/telegram"
	"github.com/m3rciful/cpgamebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/cpgamebot/core/telegram/helpers"
	"github.com/m3rciful/cpgamebot/internal/cpgame"
	"github.com/m3rciful/cpgamebot/internal/game"

	tele "gopkg.in/telebot.v4"
)

const defaultStart = game.MinStart

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/startgame", commands.Command{
		Handler:     a.onStartGame,
		Description: "Start a new CP game (default CP10)",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/pause", commands.Command{
		Handler:     a.onPause,
		Description: "Pause the current game",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/continue", commands.Command{
		Handler:     a.onContinue,
		Description: "Continue a paused game",
		AdminOnly:   true,
		Aliases:     []string{"resume"},
	})
	reg.RegisterCommand("/endgame", commands.Command{
		Handler:     a.onEndGame,
		Description: "End the game and show how far it got",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/number", commands.Command{
		Handler:     a.onNumber,
		Description: "Show the next number to post",
	})
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func (a *App) onStartGame(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	at := defaultStart
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return tghelpers.SendText(c, textInvalidStart)
		}
		at = n
	}
	err := a.service.Start(ctx, chatID(c), at)
	switch {
	case errors.Is(err, game.ErrInvalidRange):
		return tghelpers.SendText(c, textInvalidStart)
	case err != nil:
		return err
	}
	return tghelpers.SendText(c, startedText(at))
}

func (a *App) onPause(c tele.Context) error {
	res, err := a.service.Pause(tghelpers.BuildContext(c), chatID(c))
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, pauseText(res))
}

func (a *App) onContinue(c tele.Context) error {
	n, err := a.service.Resume(tghelpers.BuildContext(c), chatID(c))
	switch {
	case errors.Is(err, game.ErrNoGame):
		return tghelpers.SendText(c, textNoValidGame)
	case err != nil:
		return err
	}
	return tghelpers.SendText(c, resumedText(n))
}

func (a *App) onEndGame(c tele.Context) error {
	report, err := a.service.End(tghelpers.BuildContext(c), chatID(c))
	switch {
	case errors.Is(err, game.ErrNoGame):
		return tghelpers.SendText(c, textNoGameToEnd)
	case err != nil:
		return err
	}
	return tghelpers.SendText(c, endText(report))
}

func (a *App) onNumber(c tele.Context) error {
	n, ok, err := a.service.Next(tghelpers.BuildContext(c), chatID(c))
	if err != nil {
		return err
	}
	if !ok {
		return tghelpers.SendText(c, textNoLiveGame)
	}
	return tghelpers.SendText(c, nextNumberText(n))
}

// onMessage feeds every non-command chat message to the game.
func (a *App) onMessage(c tele.Context) error {
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), a.cfg.Game.EvaluationTimeout)
	defer cancel()

	verdict, err := a.service.HandleMessage(ctx, toMessage(c))
	if err != nil {
		return err
	}
	return a.apply(ctx, c, verdict)
}

func (a *App) apply(ctx context.Context, c tele.Context, v game.Verdict) error {
	switch v.Kind {
	case game.VerdictAccepted:
		return a.react(ctx, c)
	case game.VerdictCompleted:
		reactErr := a.react(ctx, c)
		previous := ""
		if v.PreviousSubmitter != nil {
			previous = mention(&tele.User{
				ID:        *v.PreviousSubmitter,
				FirstName: a.ops.MemberName(c, *v.PreviousSubmitter),
			})
		}
		return errors.Join(reactErr, tghelpers.SendMDV2(c, completionText(mention(c.Sender()), previous)))
	case game.VerdictRejected:
		var errs []error
		if err := c.Delete(); err != nil {
			logger.Warn(ctx, "game", "submission.delete_failed",
				slog.String("status", "fail"),
				slog.String("reason", string(v.Reason)),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			errs = append(errs, err)
		}
		if text, ok := rejectNotice(v, mention(c.Sender())); ok {
			errs = append(errs, a.ops.Notice(c, text, a.cfg.Game.NoticeTTL))
		}
		return errors.Join(errs...)
	}
	return nil
}

func (a *App) react(ctx context.Context, c tele.Context) error {
	if err := a.ops.React(c, acceptReaction); err != nil {
		logger.Warn(ctx, "game", "submission.react_failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return err
	}
	return nil
}

// toMessage reduces a Telegram message to what the game evaluates. Every
// part of an album arrives as its own message and counts as a multi-image
// post. Non-image attachments count but cannot be read.
func toMessage(c tele.Context) cpgame.Message {
	var msg cpgame.Message
	msg.ChatID = chatID(c)
	if u := c.Sender(); u != nil {
		msg.AuthorID = u.ID
		msg.FromBot = u.IsBot
	}
	m := c.Message()
	if m == nil {
		return msg
	}
	switch {
	case m.AlbumID != "":
		msg.Attachments = 2
	case m.Photo != nil:
		msg.Attachments = 1
		msg.FileID = m.Photo.FileID
	case m.Document != nil:
		msg.Attachments = 1
		if strings.HasPrefix(m.Document.MIME, "image/") {
			msg.FileID = m.Document.FileID
		}
	case m.Media() != nil:
		msg.Attachments = 1
	}
	return msg
}
