// Package cpgame runs the CP game for chats: it takes incoming messages and
// moderator commands, drives the game state machine and persists the result.
package cpgame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/m3rciful/cpgamebot/core/logger"
	"github.com/m3rciful/cpgamebot/internal/game"
	"github.com/m3rciful/cpgamebot/internal/metrics"
	"github.com/m3rciful/cpgamebot/internal/store"
)

const defaultMaxImageBytes = 10 << 20

// ErrImageTooLarge is returned when an attachment exceeds the configured cap.
var ErrImageTooLarge = errors.New("cpgame: image too large")

var errNoChange = errors.New("cpgame: no change")

// Extractor reads a number from image bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (int, bool, error)
}

// Fetcher downloads an attachment by its file reference.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Message is one chat message reduced to what the game needs.
type Message struct {
	ChatID      int64
	AuthorID    int64
	FromBot     bool
	IsCommand   bool
	Attachments int
	// FileID references the single image attachment, when there is one.
	FileID string
}

// Options configures a Service.
type Options struct {
	Store         store.Store
	Extractor     Extractor
	Fetcher       Fetcher
	Metrics       *metrics.Metrics
	MaxImageBytes int64
}

// Service owns the per-chat game flow.
type Service struct {
	store         store.Store
	extractor     Extractor
	fetcher       Fetcher
	metrics       *metrics.Metrics
	maxImageBytes int64
	locks         *chatLocks
}

// NewService validates opts and builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("cpgame: store is required")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("cpgame: extractor is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("cpgame: fetcher is required")
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = defaultMaxImageBytes
	}
	return &Service{
		store:         opts.Store,
		extractor:     opts.Extractor,
		fetcher:       opts.Fetcher,
		metrics:       opts.Metrics,
		maxImageBytes: opts.MaxImageBytes,
		locks:         newChatLocks(),
	}, nil
}

// HandleMessage evaluates a message posted in a chat. Messages in chats
// without an active game, bot messages and recognized commands come back
// as game.VerdictIgnored and must be left alone by the caller.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (game.Verdict, error) {
	ignored := game.Verdict{Kind: game.VerdictIgnored}
	if msg.IsCommand || msg.FromBot {
		return ignored, nil
	}

	unlock := s.locks.lock(msg.ChatID)
	defer unlock()

	cur, err := s.store.Load(ctx, msg.ChatID)
	if err != nil {
		return ignored, err
	}
	if !cur.Active {
		return ignored, nil
	}

	sub := game.Submission{
		FromBot:     msg.FromBot,
		Attachments: msg.Attachments,
		SubmitterID: msg.AuthorID,
	}
	if game.NeedsReading(cur, sub) {
		if n, ok := s.read(ctx, msg); ok {
			sub.Number = &n
		}
	}

	var verdict game.Verdict
	_, err = s.store.Update(ctx, msg.ChatID, func(st game.State) (game.State, error) {
		next, v := game.Submit(st, sub)
		verdict = v
		if v.Kind != game.VerdictAccepted && v.Kind != game.VerdictCompleted {
			return st, errNoChange
		}
		return next, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return ignored, err
	}

	s.metrics.ObserveSubmission(string(verdict.Kind), string(verdict.Reason))
	if verdict.Kind == game.VerdictCompleted {
		s.metrics.ObserveGame("completed")
	}
	logger.Info(ctx, "game", "game.submission",
		slog.String("status", "ok"),
		slog.Int64("chat_id", msg.ChatID),
		slog.Int64("user_id", msg.AuthorID),
		slog.String("verdict", string(verdict.Kind)),
		slog.String("reason", string(verdict.Reason)),
		slog.Int("expected", verdict.Expected),
		slog.Int("got", verdict.Got),
	)
	return verdict, nil
}

// read downloads and OCRs the attachment. Any failure counts as unreadable.
func (s *Service) read(ctx context.Context, msg Message) (int, bool) {
	start := time.Now()
	data, err := s.download(ctx, msg.FileID)
	if err == nil {
		var (
			n  int
			ok bool
		)
		n, ok, err = s.extractor.Extract(ctx, data)
		s.metrics.ObserveOCR(time.Since(start), err)
		if err == nil {
			return n, ok
		}
	}
	logger.Warn(ctx, "ocr", "ocr.failed",
		slog.String("status", "fail"),
		slog.Int64("chat_id", msg.ChatID),
		slog.String("err", err.Error()),
		slog.Duration("duration", logger.Took(start)),
	)
	return 0, false
}

func (s *Service) download(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("cpgame: attachment has no file id")
	}
	rc, err := s.fetcher.Fetch(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("cpgame: fetch %s: %w", fileID, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, s.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("cpgame: read %s: %w", fileID, err)
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
