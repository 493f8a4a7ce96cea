package security

import (
	"strings"

	"github.com/mentoro/arena/pkg/utils"
	"github.com/microcosm-cc/bluemonday"
)

// MaxChatLength caps a relayed chat message in runes
const MaxChatLength = 500

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeString trims, strips null bytes and caps length
func SanitizeString(input string, maxLen int) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return utils.Truncate(input, maxLen)
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeChat prepares user chat text for relaying to other clients
func SanitizeChat(input string) string {
	return SanitizeString(SanitizeHTML(input), MaxChatLength)
}
