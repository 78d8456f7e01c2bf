package domain

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	t.Run("corto queda igual", func(t *testing.T) {
		if got := DeriveTitle("Hello"); got != "Hello" {
			t.Fatalf("expected %q, got %q", "Hello", got)
		}
	})

	t.Run("exactamente 40 sin elipsis", func(t *testing.T) {
		text := strings.Repeat("a", 40)
		if got := DeriveTitle(text); got != text {
			t.Fatalf("expected unmodified title, got %q", got)
		}
	})

	t.Run("mas de 40 recorta con elipsis", func(t *testing.T) {
		text := "What is Cronbach's Alpha and how do I compute it in practice for a twenty item scale?"
		got := DeriveTitle(text)
		want := text[:40] + "..."
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("cuenta runas, no bytes", func(t *testing.T) {
		text := strings.Repeat("ë", 41)
		got := DeriveTitle(text)
		if got != strings.Repeat("ë", 40)+"..." {
			t.Fatalf("unexpected title: %q", got)
		}
	})
}
