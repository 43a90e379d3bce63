package bots

import "strings"

// GreetingPlaceholder is replaced by the user mention in greeting templates.
const GreetingPlaceholder = "{name}"

// Greeting renders a greeting template for the given mention.
func Greeting(template, mention string) string {
	return strings.ReplaceAll(template, GreetingPlaceholder, mention)
}

// SplitMessage breaks text into chunks of at most limit characters,
// preferring paragraph, then line, then word boundaries. Text within the
// limit is returned as a single chunk.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := splitPoint(runes[:limit])
		if part := strings.TrimRight(string(runes[:cut]), " \n"); part != "" {
			parts = append(parts, part)
		}
		runes = trimLeadingSpace(runes[cut:])
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

var separators = [][]rune{{'\n', '\n'}, {'\n'}, {' '}}

// splitPoint returns the index after the last separator in the back half of
// window, or len(window) when there is none.
func splitPoint(window []rune) int {
	lower := len(window) / 2
	for _, sep := range separators {
		if i := lastIndex(window, sep); i >= lower {
			return i + len(sep)
		}
	}
	return len(window)
}

func lastIndex(s, sep []rune) int {
outer:
	for i := len(s) - len(sep); i >= 0; i-- {
		for j, r := range sep {
			if s[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

func trimLeadingSpace(r []rune) []rune {
	for len(r) > 0 && (r[0] == ' ' || r[0] == '\n') {
		r = r[1:]
	}
	return r
}
