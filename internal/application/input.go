package application

import (
	"strings"
	"unicode/utf8"

	"github.com/mrz1836/go-sanitize"
)

// Input limits.
const (
	MaxTitleLength   = 120
	MaxHandleLength  = 40
	MaxMessageLength = 500
	MaxPlaceLength   = 120
	MinPasswordLen   = 8
)

// AnonymousHandle is shown for attendees and chat authors without a name.
const AnonymousHandle = "anónimo"

// ApproximatePlace is stored when a plan has coordinates but no place or city.
const ApproximatePlace = "Ubicación aproximada"

// cleanLine strips markup and line breaks from single-line user input.
func cleanLine(value string) string {
	return strings.TrimSpace(sanitize.SingleLine(sanitize.XSS(value)))
}

// cleanText strips markup from multi-line user input.
func cleanText(value string) string {
	return strings.TrimSpace(sanitize.XSS(value))
}

func tooLong(value string, max int) bool {
	return utf8.RuneCountInString(value) > max
}

// handleFor resolves the displayed handle for a join or chat message.
func handleFor(requested string, principal *Principal) string {
	if h := cleanLine(requested); h != "" {
		if tooLong(h, MaxHandleLength) {
			return string([]rune(h)[:MaxHandleLength])
		}
		return h
	}
	if principal != nil {
		if name := cleanLine(principal.DisplayName); name != "" {
			return name
		}
	}
	return AnonymousHandle
}
