package cpgame

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/cpgamebot/core/logger"
	"github.com/m3rciful/cpgamebot/internal/game"
)

// Start begins a new game in chatID, replacing any existing one.
func (s *Service) Start(ctx context.Context, chatID int64, at int) error {
	unlock := s.locks.lock(chatID)
	defer unlock()

	_, err := s.store.Update(ctx, chatID, func(st game.State) (game.State, error) {
		return game.Start(st, at)
	})
	s.observe(ctx, "startgame", chatID, err, slog.Int("start", at))
	if err == nil {
		s.metrics.ObserveGame("started")
	}
	return err
}

// Pause stops evaluating submissions while keeping progress.
func (s *Service) Pause(ctx context.Context, chatID int64) (game.PauseResult, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var res game.PauseResult
	_, err := s.store.Update(ctx, chatID, func(st game.State) (game.State, error) {
		var next game.State
		next, res = game.Pause(st)
		if res == game.PauseNoop {
			return st, errNoChange
		}
		return next, nil
	})
	if errors.Is(err, errNoChange) {
		err = nil
	}
	if res == game.PauseReset {
		logger.Warn(ctx, "game", "game.state_inconsistent",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("cause", "pause"),
		)
		s.metrics.ObserveGame("reset")
	}
	s.observe(ctx, "pause", chatID, err, slog.String("outcome_detail", res.String()))
	return res, err
}

// Resume re-activates a paused game and returns the expected number.
func (s *Service) Resume(ctx context.Context, chatID int64) (int, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var next int
	_, err := s.store.Update(ctx, chatID, func(st game.State) (game.State, error) {
		var (
			out game.State
			err error
		)
		out, next, err = game.Resume(st)
		return out, err
	})
	s.observe(ctx, "continue", chatID, err, slog.Int("number", next))
	return next, err
}

// End abandons the game and reports the completion. Without a game it
// returns game.ErrNoGame after persisting the forced inactive flag.
func (s *Service) End(ctx context.Context, chatID int64) (game.EndReport, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var (
		report  game.EndReport
		gameErr error
	)
	_, err := s.store.Update(ctx, chatID, func(st game.State) (game.State, error) {
		var next game.State
		next, report, gameErr = game.End(st)
		return next, nil
	})
	if err == nil {
		err = gameErr
	}
	if err == nil {
		s.metrics.ObserveGame("ended")
	}
	s.observe(ctx, "endgame", chatID, err,
		slog.Int("completion_pct", report.Percent()),
		slog.String("tier", string(report.Tier)),
	)
	return report, err
}

// Next reports the number the chat is waiting for while a game is live.
func (s *Service) Next(ctx context.Context, chatID int64) (int, bool, error) {
	st, err := s.store.Load(ctx, chatID)
	if err != nil {
		return 0, false, err
	}
	n, ok := game.Next(st)
	return n, ok, nil
}

// State returns the stored state of chatID.
func (s *Service) State(ctx context.Context, chatID int64) (game.State, error) {
	return s.store.Load(ctx, chatID)
}

func (s *Service) observe(ctx context.Context, command string, chatID int64, err error, extra ...slog.Attr) {
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	s.metrics.ObserveCommand(command, outcome)

	attrs := []slog.Attr{
		slog.String("status", outcome),
		slog.String("operation", command),
		slog.Int64("chat_id", chatID),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", err.Error()),
			slog.String("err_code", game.ErrorCode(err)),
		)
	}
	attrs = append(attrs, extra...)
	logger.Info(ctx, "game", "game.command", attrs...)
}
