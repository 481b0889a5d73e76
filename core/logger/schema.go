package logger

import "strings"

func levelName(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return "INFO"
	case "warning":
		return "WARN"
	}
	return strings.ToUpper(level)
}

// statusValue lowercases status. The values in use are ok, fail, skip,
// retry, rate_limited and cancelled.
func statusValue(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// defaultKeyOrder puts identity first, then the update, then the game
// fields, then errors. Keys not listed follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"duration_ms",
	"verdict",
	"reason",
	"number",
	"expected",
	"got",
	"start",
	"completion_pct",
	"tier",
	"backend",
	"lang",
	"width",
	"height",
	"text",
	"media",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
	"pending_count",
}
