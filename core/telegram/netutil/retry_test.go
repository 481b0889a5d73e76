package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  Kind
		retry bool
	}{
		{"nil", nil, KindNone, false},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), KindTimeout, true},
		{"url timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, KindTimeout, true},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, KindDial, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, KindDNS, false},
		{"plain", errors.New("message to delete not found"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.kind {
				t.Fatalf("Classify = %q, want %q", got, tt.kind)
			}
			if got := ShouldRetry(tt.err); got != tt.retry {
				t.Fatalf("ShouldRetry = %v, want %v", got, tt.retry)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": EOF`)
	got := Redact(err)
	if strings.Contains(got, "123456:AA") || !strings.Contains(got, "bot<redacted>/sendMessage") {
		t.Fatalf("Redact = %q", got)
	}
	if Redact(nil) != "" {
		t.Fatal("nil error should redact to empty")
	}
}

func TestRetryAfterIgnoresOtherErrors(t *testing.T) {
	if _, ok := RetryAfter(errors.New("boom")); ok {
		t.Fatal("plain error has no retry-after")
	}
}
