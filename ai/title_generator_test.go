package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short input is untouched", func(t *testing.T) {
		assert.Equal(t, "hello", truncate("hello", 10))
	})

	t.Run("long input is cut with ellipsis", func(t *testing.T) {
		got := truncate(strings.Repeat("a", 20), 5)
		assert.Equal(t, "aaaaa...", got)
	})

	t.Run("multi-byte runes are not split", func(t *testing.T) {
		got := truncate(strings.Repeat("日本語", 10), 4)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, "日本語日...", got)
	})
}

func TestClampTitle(t *testing.T) {
	t.Run("strips quotes and whitespace", func(t *testing.T) {
		assert.Equal(t, "Refund policy", clampTitle(`  "Refund policy"  `))
	})

	t.Run("bounds length by runes", func(t *testing.T) {
		got := clampTitle(strings.Repeat("题", titleMaxRuneCount+10))
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, titleMaxRuneCount, len([]rune(got)))
	})
}
