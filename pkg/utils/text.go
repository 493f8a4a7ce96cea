package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeLineEndings converts CRLF and lone CR line breaks to LF
func NormalizeLineEndings(input string) string {
	replacer := strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
	)
	return replacer.Replace(input)
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
