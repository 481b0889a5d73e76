package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/cpgamebot/core/config"

	tele "gopkg.in/telebot.v4"
)

type flakyTripper struct {
	fails  int
	calls  int
	bodies []string
}

func (f *flakyTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	if f.calls <= f.fails {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportReplaysBody(t *testing.T) {
	next := &flakyTripper{fails: 2}
	rt := &retryTransport{next: next, attempts: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("text=CP10"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if next.calls != 3 {
		t.Fatalf("calls = %d, want 3", next.calls)
	}
	for i, b := range next.bodies {
		if b != "text=CP10" {
			t.Fatalf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryTransportGivesUp(t *testing.T) {
	next := &flakyTripper{fails: 10}
	rt := &retryTransport{next: next, attempts: 2, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if next.calls != 2 {
		t.Fatalf("calls = %d, want 2", next.calls)
	}
}

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp, ok := newPoller(cfg).(*tele.LongPoller)
	if !ok || lp.Timeout != 25*time.Second {
		t.Fatalf("long poller = %#v", newPoller(cfg))
	}

	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example.org/hook"
	wh, ok := newPoller(cfg).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != cfg.Webhook.URL {
		t.Fatalf("webhook = %#v", newPoller(cfg))
	}
}
