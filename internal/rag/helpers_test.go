package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerpt(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		if got := excerpt("short"); got != "short" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("long text is truncated with ellipsis", func(t *testing.T) {
		got := excerpt(strings.Repeat("a", 300))
		if len(got) != excerptLimit+3 {
			t.Errorf("len = %d, want %d", len(got), excerptLimit+3)
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cut lands on a rune boundary", func(t *testing.T) {
		// 3-byte runes, so the byte limit falls inside a rune
		text := strings.Repeat("日本語", 40)
		got := excerpt(text)
		if !utf8.ValidString(got) {
			t.Errorf("excerpt contains a split rune: %q", got)
		}
		if !strings.HasPrefix(text, strings.TrimSuffix(got, "...")) {
			t.Errorf("excerpt is not a prefix of the source: %q", got)
		}
	})
}
