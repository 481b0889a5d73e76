package cpgame

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/m3rciful/cpgamebot/internal/game"
	"github.com/m3rciful/cpgamebot/internal/metrics"
	"github.com/m3rciful/cpgamebot/internal/store"
)

// fakeExtractor reads the image bytes as the OCR text, so "25" means 25.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte) (int, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	n := 0
	for _, b := range data {
		if b < '0' || b > '9' {
			return 0, false, nil
		}
		n = n*10 + int(b-'0')
	}
	return n, len(data) > 0, nil
}

// fakeFetcher serves file contents keyed by file id.
type fakeFetcher struct {
	files map[string]string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, fileID string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader([]byte(f.files[fileID]))), nil
}

type fixture struct {
	svc     *Service
	st      store.Store
	ext     *fakeExtractor
	fetcher *fakeFetcher
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:      store.NewMemory(),
		ext:     &fakeExtractor{},
		fetcher: &fakeFetcher{files: map[string]string{}},
		metrics: metrics.New(),
	}
	svc, err := NewService(Options{
		Store:         f.st,
		Extractor:     f.ext,
		Fetcher:       f.fetcher,
		Metrics:       f.metrics,
		MaxImageBytes: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.svc = svc
	return f
}

func (f *fixture) screenshot(chat, author int64, text string) Message {
	id := text + "-file"
	f.fetcher.files[id] = text
	return Message{ChatID: chat, AuthorID: author, Attachments: 1, FileID: id}
}

const chat = int64(-1001)

func TestHandleMessageTurnTaking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Start(ctx, chat, 10); err != nil {
		t.Fatal(err)
	}

	v, err := f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "10"))
	if err != nil || v.Kind != game.VerdictAccepted || v.Next != 11 {
		t.Fatalf("first: %+v %v", v, err)
	}

	v, err = f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "11"))
	if err != nil || v.Reason != game.ReasonConsecutive {
		t.Fatalf("consecutive: %+v %v", v, err)
	}
	if f.ext.calls != 1 {
		t.Fatalf("consecutive submission should skip OCR, calls=%d", f.ext.calls)
	}

	v, err = f.svc.HandleMessage(ctx, f.screenshot(chat, 2, "11"))
	if err != nil || v.Kind != game.VerdictAccepted {
		t.Fatalf("second author: %+v %v", v, err)
	}
	if n, ok, _ := f.svc.Next(ctx, chat); !ok || n != 12 {
		t.Fatalf("next = %d %v", n, ok)
	}

	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("accepted", "")); got != 2 {
		t.Fatalf("accepted metric = %v", got)
	}
}

func TestHandleMessageRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Start(ctx, chat, 20); err != nil {
		t.Fatal(err)
	}

	v, _ := f.svc.HandleMessage(ctx, Message{ChatID: chat, AuthorID: 3})
	if v.Reason != game.ReasonMalformed || !v.Delete() {
		t.Fatalf("text message: %+v", v)
	}

	v, _ = f.svc.HandleMessage(ctx, f.screenshot(chat, 3, "cat"))
	if v.Reason != game.ReasonUnreadable {
		t.Fatalf("unreadable: %+v", v)
	}

	v, _ = f.svc.HandleMessage(ctx, f.screenshot(chat, 3, "21"))
	if v.Reason != game.ReasonWrongNumber || v.Expected != 20 || v.Got != 21 {
		t.Fatalf("wrong number: %+v", v)
	}

	v, _ = f.svc.HandleMessage(ctx, f.screenshot(chat, 3, "123456789012345678"))
	if v.Reason != game.ReasonUnreadable {
		t.Fatalf("oversized image: %+v", v)
	}

	st, _ := f.svc.State(ctx, chat)
	if *st.Number != 20 || st.LastSubmitterID != nil {
		t.Fatalf("rejects changed state: %+v", st)
	}
}

func TestHandleMessageFetchAndOCRFailuresAreUnreadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.svc.Start(ctx, chat, 20)

	f.fetcher.err = errors.New("network down")
	v, err := f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "20"))
	if err != nil || v.Reason != game.ReasonUnreadable {
		t.Fatalf("fetch failure: %+v %v", v, err)
	}

	f.fetcher.err = nil
	f.ext.err = errors.New("tesseract crashed")
	v, err = f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "20"))
	if err != nil || v.Reason != game.ReasonUnreadable {
		t.Fatalf("ocr failure: %+v %v", v, err)
	}
	if got := testutil.ToFloat64(f.metrics.OCRFailures); got != 1 {
		t.Fatalf("ocr failures = %v", got)
	}
}

func TestHandleMessageIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, _ := f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "10"))
	if v.Kind != game.VerdictIgnored {
		t.Fatalf("idle chat: %+v", v)
	}

	_ = f.svc.Start(ctx, chat, 10)
	cases := []Message{
		{ChatID: chat, AuthorID: 1, FromBot: true},
		{ChatID: chat, AuthorID: 1, IsCommand: true},
	}
	for _, msg := range cases {
		v, _ := f.svc.HandleMessage(ctx, msg)
		if v.Kind != game.VerdictIgnored || v.Delete() {
			t.Fatalf("%+v: %+v", msg, v)
		}
	}

	if _, err := f.svc.Pause(ctx, chat); err != nil {
		t.Fatal(err)
	}
	v, _ = f.svc.HandleMessage(ctx, f.screenshot(chat, 1, "10"))
	if v.Kind != game.VerdictIgnored {
		t.Fatalf("paused chat: %+v", v)
	}
	if f.ext.calls != 0 {
		t.Fatalf("ignored messages must not be read, calls=%d", f.ext.calls)
	}
}

func TestHandleMessageCompletesGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, number, last := 10, game.EndGoal, int64(4)
	if _, err := f.st.Update(ctx, chat, func(game.State) (game.State, error) {
		return game.State{Active: true, Start: &start, Number: &number, LastSubmitterID: &last}, nil
	}); err != nil {
		t.Fatal(err)
	}

	v, err := f.svc.HandleMessage(ctx, f.screenshot(chat, 5, "3500"))
	if err != nil || v.Kind != game.VerdictCompleted {
		t.Fatalf("final: %+v %v", v, err)
	}
	if v.PreviousSubmitter == nil || *v.PreviousSubmitter != 4 {
		t.Fatalf("previous submitter %v", v.PreviousSubmitter)
	}
	st, _ := f.svc.State(ctx, chat)
	if st.Phase() != game.PhaseIdle || *st.LastSubmitterID != 5 {
		t.Fatalf("state after completion: %+v", st)
	}
	if got := testutil.ToFloat64(f.metrics.Games.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed metric = %v", got)
	}
}

func TestCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Start(ctx, chat, 5); !errors.Is(err, game.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if res, err := f.svc.Pause(ctx, chat); err != nil || res != game.PauseNoop {
		t.Fatalf("pause idle: %v %v", res, err)
	}
	if _, err := f.svc.Resume(ctx, chat); !errors.Is(err, game.ErrNoGame) {
		t.Fatalf("resume idle: %v", err)
	}

	if err := f.svc.Start(ctx, chat, 100); err != nil {
		t.Fatal(err)
	}
	if res, _ := f.svc.Pause(ctx, chat); res != game.PauseApplied {
		t.Fatalf("pause: %v", res)
	}
	if _, ok, _ := f.svc.Next(ctx, chat); ok {
		t.Fatal("paused game reports a live number")
	}
	if n, err := f.svc.Resume(ctx, chat); err != nil || n != 100 {
		t.Fatalf("resume: %d %v", n, err)
	}

	rep, err := f.svc.End(ctx, chat)
	if err != nil || rep.Tier != game.TierFutile || rep.Percent() != 0 {
		t.Fatalf("end: %+v %v", rep, err)
	}
	st, _ := f.svc.State(ctx, chat)
	if st != (game.State{}) {
		t.Fatalf("state after end: %+v", st)
	}

	if _, err := f.svc.End(ctx, chat); !errors.Is(err, game.ErrNoGame) {
		t.Fatalf("end idle: %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.Commands.WithLabelValues("startgame", "fail")); got != 1 {
		t.Fatalf("failed start metric = %v", got)
	}
}

func TestPauseResetsInconsistentState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := 10
	_, _ = f.st.Update(ctx, chat, func(game.State) (game.State, error) {
		return game.State{Active: true, Start: &start}, nil
	})
	res, err := f.svc.Pause(ctx, chat)
	if err != nil || res != game.PauseReset {
		t.Fatalf("pause: %v %v", res, err)
	}
	st, _ := f.svc.State(ctx, chat)
	if st != (game.State{}) {
		t.Fatalf("state not cleared: %+v", st)
	}
}

func TestHandleMessageSerializesPerChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.svc.Start(ctx, chat, 10)

	// every author claims 10; exactly one can win
	msgs := make([]Message, 16)
	for i := range msgs {
		msgs[i] = f.screenshot(chat, int64(100+i), "10")
	}
	var wg sync.WaitGroup
	results := make(chan game.Verdict, len(msgs))
	for _, msg := range msgs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.svc.HandleMessage(ctx, msg)
			if err != nil {
				t.Error(err)
			}
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for v := range results {
		if v.Kind == game.VerdictAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want 1", accepted)
	}
	if f.svc.locks.size() != 0 {
		t.Fatalf("chat locks leaked: %d", f.svc.locks.size())
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Fatal("expected missing store to fail")
	}
	if _, err := NewService(Options{Store: store.NewMemory()}); err == nil {
		t.Fatal("expected missing extractor to fail")
	}
	if _, err := NewService(Options{Store: store.NewMemory(), Extractor: &fakeExtractor{}}); err == nil {
		t.Fatal("expected missing fetcher to fail")
	}
}
