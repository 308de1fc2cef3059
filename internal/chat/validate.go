package chat

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// ValidationError is a user-fixable input error, surfaced as a client
// error by the HTTP layer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

const maxMessageLength = 1000

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\{\{.*\}\}`),      // template injection
	regexp.MustCompile(`(?i)<script.*?>`), // XSS attempts
	regexp.MustCompile(`(?i)system\(`),    // system command attempts
	regexp.MustCompile(`(?i)exec\(`),      // code execution attempts
}

// ValidateMessage enforces the length bounds and basic content safety of
// an inbound chat message.
func ValidateMessage(message string) error {
	if len(message) == 0 {
		return &ValidationError{Reason: "message is empty"}
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return &ValidationError{Reason: fmt.Sprintf("message exceeds %d characters", maxMessageLength)}
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(message) {
			return &ValidationError{Reason: "message contains disallowed content"}
		}
	}

	return nil
}
