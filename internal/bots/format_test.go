package bots

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hi Ada!", Greeting("Hi {name}!", "Ada"))
	assert.Equal(t, "Hello", Greeting("Hello", "Ada"), "templates without a placeholder are sent as is")
	assert.Equal(t, "Ada and Ada", Greeting("{name} and {name}", "Ada"))
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"within limit", "short", 10, []string{"short"}},
		{"empty", "", 10, []string{""}},
		{"no limit", "anything", 0, []string{"anything"}},
		{"word boundary", "aaaa bbbb", 5, []string{"aaaa", "bbbb"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"paragraph preferred", "one two\n\nthree", 12, []string{"one two", "three"}},
		{"line preferred over space", "ab cd\nef gh", 8, []string{"ab cd", "ef gh"}},
		{"multibyte runes", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.text, tt.limit))
		})
	}
}

func TestSplitMessageRespectsLimit(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet\n", 400)
	parts := SplitMessage(text, TelegramMaxMessage)
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), TelegramMaxMessage)
		assert.NotEmpty(t, p)
	}
}
