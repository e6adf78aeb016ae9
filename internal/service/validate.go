package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextLength is the longest accepted todo text, in code points.
const MaxTextLength = 255

// ValidationError is a client mistake. Message is returned to the caller
// verbatim.
type ValidationError struct {
	Message string
	// Pattern is the deny-list entry that matched, if any.
	Pattern string
}

func (e *ValidationError) Error() string { return e.Message }

// Is matches on Message so that errors carrying a Pattern still match the
// sentinel.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Message == e.Message
}

var (
	ErrTextRequired      = &ValidationError{Message: "text field is required"}
	ErrTextEmpty         = &ValidationError{Message: "text cannot be empty"}
	ErrTextTooLong       = &ValidationError{Message: "text maximum 255 characters"}
	ErrSuspiciousContent = &ValidationError{Message: "Invalid characters detected"}
)

// denyList holds script and injection markers, lower-cased.
var denyList = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
	"eval(",
	"alert(",
	"document.cookie",
	"localstorage",
	"sessionstorage",
}

// ValidateText checks raw todo text and returns it trimmed. Nothing is
// escaped or rewritten; text is either accepted as-is or rejected.
func ValidateText(raw *string, checkDenyList bool) (string, error) {
	if raw == nil {
		return "", ErrTextRequired
	}
	text := trimText(*raw)
	if text == "" {
		return "", ErrTextEmpty
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", ErrTextTooLong
	}
	if checkDenyList {
		if p, ok := matchDenyList(text); ok {
			return "", &ValidationError{Message: ErrSuspiciousContent.Message, Pattern: p}
		}
	}
	return text, nil
}

// trimText strips Unicode white space and the ASCII separators U+001C to
// U+001F from both ends.
func trimText(s string) string {
	return strings.TrimFunc(s, isTrimmed)
}

func isTrimmed(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func matchDenyList(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range denyList {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// truncateRunes cuts s to at most n code points.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
