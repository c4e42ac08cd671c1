package llm

import (
	"strings"
	"testing"
)

func TestIsUnsafeContent(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Just had the best coffee of my life", false},
		{"This is NSFW content", true},
		{"totally nsfw stuff here", true},
		{"honestly i'm underage for this club joke", true},
		{"Sussex is lovely this time of year", true}, // substring match is deliberately blunt
		{"", false},
	}
	for _, tt := range tests {
		if got := IsUnsafeContent(tt.text); got != tt.want {
			t.Errorf("IsUnsafeContent(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsTooGeneric(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"haha thanks", true},
		{"HAHA THANKS", true},
		{"  ok  ", true},
		{"short", true}, // under 10 characters
		{"Thank you so much for sharing this, it made my day", false},
		{"Interesting take, I never thought of it that way", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := IsTooGeneric(tt.text); got != tt.want {
			t.Errorf("IsTooGeneric(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Hello there"`, "Hello there"},
		{"'quoted reply'", "quoted reply"},
		{"1. First item in a list", "First item in a list"},
		{"12) numbered thing", "numbered thing"},
		{"- bullet point text", "bullet point text"},
		{"  plain text  ", "plain text"},
		{"2026 was a great year", "was a great year"},
		{"", ""},
		{"12345", "12345"}, // all digits, nothing left to strip
	}
	for _, tt := range tests {
		if got := CleanResponse(tt.in); got != tt.want {
			t.Errorf("CleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClampLength(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		if got := ClampLength("hello", 500); got != "hello" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("prefers sentence boundary", func(t *testing.T) {
		text := "First sentence lives here. Second sentence runs on and on and on and on past the limit"
		got := ClampLength(text, 40)
		if got != "First sentence lives here." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("ellipsis when no usable boundary", func(t *testing.T) {
		text := strings.Repeat("a", 100)
		got := ClampLength(text, 40)
		if len([]rune(got)) != 40 {
			t.Errorf("len = %d, want 40", len([]rune(got)))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("got %q, want ellipsis suffix", got)
		}
	})

	t.Run("early period is ignored", func(t *testing.T) {
		text := "Hi. " + strings.Repeat("b", 100)
		got := ClampLength(text, 40)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("got %q, want ellipsis suffix", got)
		}
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 50)
		got := ClampLength(text, 30)
		if n := len([]rune(got)); n != 30 {
			t.Errorf("rune len = %d, want 30", n)
		}
	})
}
