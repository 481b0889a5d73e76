package format

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

// mdV2Specials lists the MarkdownV2 specials except '-', which is appended
// separately so it cannot form a range inside the character class.
const mdV2Specials = "\\_*[]()~`>#+=|{}.!"

var (
	mdV1Re = regexp.MustCompile(`([_*\\\[` + "`" + `])`)
	mdV2Re = regexp.MustCompile("([" + regexp.QuoteMeta(mdV2Specials) + "\\-])")
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
func EscapeMarkdown(text string, version int) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeV2 escapes text for MarkdownV2.
func EscapeV2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$1`)
}

// V2f escapes the literal parts of tmpl for MarkdownV2 and substitutes args.
// String args are inserted verbatim, so they must already be escaped.
func V2f(tmpl string, args ...any) string {
	return fmt.Sprintf(EscapeV2(tmpl), args...)
}

// MentionV2 links name to the Telegram user id.
func MentionV2(name string, userID int64) string {
	if name == "" {
		name = "player"
	}
	return "[" + EscapeV2(name) + "](tg://user?id=" + strconv.FormatInt(userID, 10) + ")"
}
