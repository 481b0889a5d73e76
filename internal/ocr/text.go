package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	confusions = strings.NewReplacer(
		"l", "1",
		"o", "0",
		"I", "1",
		"O", "0",
	)
	numberRe = regexp.MustCompile(`\d{2,4}`)
)

// Normalize rewrites letters that OCR commonly confuses with digits.
func Normalize(text string) string {
	return confusions.Replace(text)
}

// ParseNumber returns the first run of two to four digits in the normalized text.
func ParseNumber(text string) (int, bool) {
	match := numberRe.FindString(Normalize(text))
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
