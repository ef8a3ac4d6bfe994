package diffusion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizePromptShortPassThrough(t *testing.T) {
	got, truncated := SanitizePrompt("a red fox in snow")
	if truncated {
		t.Fatal("short prompt should not be truncated")
	}
	if got != "a red fox in snow" {
		t.Fatalf("prompt changed: %q", got)
	}
}

func TestSanitizePromptExactBudget(t *testing.T) {
	prompt := strings.Repeat("a", PromptBudget)
	got, truncated := SanitizePrompt(prompt)
	if truncated {
		t.Fatal("prompt at the budget should not be truncated")
	}
	if len(got) != PromptBudget {
		t.Fatalf("len = %d, want %d", len(got), PromptBudget)
	}
}

func TestSanitizePromptBacksOffToBoundary(t *testing.T) {
	// A comma at position 200 sits past the floor, so truncation should
	// cut there rather than mid-word.
	prompt := strings.Repeat("a", 200) + ", " + strings.Repeat("b", 100)
	got, truncated := SanitizePrompt(prompt)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(got) != 200 {
		t.Fatalf("len = %d, want 200 (cut at comma)", len(got))
	}
	if strings.ContainsAny(got[len(got)-1:], ", ") {
		t.Fatalf("trailing separator survived: %q", got[len(got)-5:])
	}
}

func TestSanitizePromptIgnoresEarlyBoundary(t *testing.T) {
	// The only separator is at position 10, inside the floor, so the
	// hard cut wins.
	prompt := strings.Repeat("a", 10) + " " + strings.Repeat("b", 300)
	got, truncated := SanitizePrompt(prompt)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(got) != PromptBudget {
		t.Fatalf("len = %d, want hard cut at %d", len(got), PromptBudget)
	}
}

func TestSanitizePromptNeverExceedsBudget(t *testing.T) {
	prompts := []string{
		strings.Repeat("word ", 100),
		strings.Repeat("x", 1000),
		strings.Repeat("a, ", 200),
		"  " + strings.Repeat("b", 400) + "  ",
	}
	for _, p := range prompts {
		got, _ := SanitizePrompt(p)
		if len(got) > PromptBudget {
			t.Fatalf("len = %d exceeds budget for input of len %d", len(got), len(p))
		}
	}
}

func TestSanitizePromptNeverSplitsRune(t *testing.T) {
	// Each rune is 3 bytes; 250 is not a multiple of 3, so a byte-indexed
	// hard cut lands mid-rune and must back off to the boundary.
	prompt := strings.Repeat("桜", 100)
	got, truncated := SanitizePrompt(prompt)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(got) > PromptBudget {
		t.Fatalf("len = %d exceeds budget", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got)%3 != 0 {
		t.Fatalf("len = %d, want a whole number of 3-byte runes", len(got))
	}
}

func TestSlugNeverSplitsRune(t *testing.T) {
	// 1 ASCII byte + 10 three-byte runes = 31 bytes; the 30-byte prefix
	// cut lands inside the last rune.
	got := Slug("a" + strings.Repeat("桜", 10))
	if !utf8.ValidString(got) {
		t.Fatalf("slug is invalid UTF-8: %q", got)
	}
	if got != "a" {
		t.Fatalf("Slug = %q, want %q", got, "a")
	}
}

func TestSanitizePromptTrimsWhitespace(t *testing.T) {
	got, truncated := SanitizePrompt("   padded   ")
	if truncated || got != "padded" {
		t.Fatalf("got %q truncated=%v", got, truncated)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"simple", "red fox", "red_fox"},
		{"punctuation stripped", "a cat, sitting!", "a_cat_sitting"},
		{"long prompt cut to prefix", strings.Repeat("abcde ", 20), "abcde_abcde_abcde_abcde_abcde"},
		{"keeps hyphen and underscore", "x-y_z", "x-y_z"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.prompt); got != tt.want {
				t.Fatalf("Slug(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}
