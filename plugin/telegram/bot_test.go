package telegram

import (
	"strings"
	"testing"

	"github.com/hrygo/ragdesk/chat"
)

func TestParseUseArgs(t *testing.T) {
	t.Run("valid selection", func(t *testing.T) {
		indexes, err := parseUseArgs("1 3", 5)
		if err != nil {
			t.Fatalf("parseUseArgs: %v", err)
		}
		if len(indexes) != 2 || indexes[0] != 0 || indexes[1] != 2 {
			t.Errorf("indexes = %v, want [0 2]", indexes)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		indexes, err := parseUseArgs("2 2", 5)
		if err != nil {
			t.Fatalf("parseUseArgs: %v", err)
		}
		if len(indexes) != 1 || indexes[0] != 1 {
			t.Errorf("indexes = %v, want [1]", indexes)
		}
	})

	t.Run("empty args rejected", func(t *testing.T) {
		if _, err := parseUseArgs("", 5); err == nil {
			t.Error("expected error for empty args")
		}
	})

	t.Run("more than the selection cap rejected", func(t *testing.T) {
		if _, err := parseUseArgs("1 2 3 4", 5); err == nil {
			t.Error("expected error above the cap")
		}
	})

	t.Run("out of range rejected", func(t *testing.T) {
		if _, err := parseUseArgs("6", 5); err == nil {
			t.Error("expected error for out-of-range number")
		}
		if _, err := parseUseArgs("0", 5); err == nil {
			t.Error("expected error for zero")
		}
		if _, err := parseUseArgs("abc", 5); err == nil {
			t.Error("expected error for non-numeric input")
		}
	})
}

func TestSourcesFooter(t *testing.T) {
	t.Run("no sources, no footer", func(t *testing.T) {
		if got := sourcesFooter(nil); got != "" {
			t.Errorf("footer = %q, want empty", got)
		}
	})

	t.Run("deduplicates by document", func(t *testing.T) {
		footer := sourcesFooter([]chat.Source{
			{DocumentID: "doc-a", Title: "Terms"},
			{DocumentID: "doc-a", Title: "Terms"},
			{DocumentID: "doc-b", Title: "Handbook"},
		})
		if strings.Count(footer, "Terms") != 1 {
			t.Errorf("footer repeats a document: %q", footer)
		}
		if !strings.Contains(footer, "Handbook") {
			t.Errorf("footer missing a document: %q", footer)
		}
	})
}

func TestSessionToken(t *testing.T) {
	if got := sessionToken(12345); got != "tg:12345" {
		t.Errorf("sessionToken = %q", got)
	}
}
