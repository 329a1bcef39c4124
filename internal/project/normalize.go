package project

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/minimalcad/mcad/internal/errors"
)

// Limits on user-supplied project text.
const (
	MaxNameChars        = 120
	MaxDescriptionChars = 8000
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Lint checks a project name and description before saving.
func Lint(name, description string) error {
	if Normalize(name) == "" {
		return errors.NewInvalidRequest("project name is required")
	}
	if n := CountChars(strings.TrimSpace(name)); n > MaxNameChars {
		return errors.NewInvalidRequest(fmt.Sprintf("project name is %d characters; the limit is %d", n, MaxNameChars))
	}
	if n := CountChars(description); n > MaxDescriptionChars {
		return errors.NewInvalidRequest(fmt.Sprintf("project description is %d characters; the limit is %d", n, MaxDescriptionChars))
	}
	return nil
}
