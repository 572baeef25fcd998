package openapi

import (
	"regexp"
	"strings"
)

var wordSeparators = regexp.MustCompile(`[_\-\s]+`)

// Labeler turns a property name into a field label.
type Labeler func(name string) string

// DefaultLabeler splits on underscores and dashes into capitalised words;
// camelCase boundaries inside a word become spaces, so "firstName" becomes
// "First name" and "first_name" becomes "First Name".
func DefaultLabeler(name string) string {
	var parts []string
	for _, word := range wordSeparators.Split(name, -1) {
		if word == "" {
			continue
		}
		parts = append(parts, capitalise(splitCamel(word)))
	}
	return strings.Join(parts, " ")
}

func splitCamel(input string) string {
	var out strings.Builder
	var prev rune
	for i, r := range input {
		if i > 0 && boundary(prev, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
		prev = r
	}
	return out.String()
}

func boundary(prev, r rune) bool {
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func capitalise(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
