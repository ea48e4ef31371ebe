// Package transcript normalizes recognized text before it reaches a consumer.
package transcript

import "strings"

// Options controls transcript formatting behavior.
type Options struct {
	// TrailingSpace appends one space so injection-style consumers can
	// chain consecutive utterances without words running together.
	TrailingSpace bool
}

// Blank reports whether text carries no usable content.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Normalize collapses internal whitespace and applies configured formatting.
// Blank input yields the empty string regardless of options.
func Normalize(text string, opts Options) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
