package diffusion

import (
	"strings"
	"unicode/utf8"
)

// Prompt length handling. The character budget approximates the CLIP
// text encoder's 77-token limit; the boundary floor keeps the backoff
// from cutting away most of the prompt when the last separator sits
// early in the text.
const (
	PromptBudget  = 250
	boundaryFloor = 150

	// slugSourceLen is how many prompt characters feed the filename slug.
	slugSourceLen = 30
)

// SanitizePrompt bounds a prompt to the default character budget.
// See SanitizePromptN.
func SanitizePrompt(prompt string) (string, bool) {
	return SanitizePromptN(prompt, PromptBudget)
}

// SanitizePromptN truncates prompt to at most budget characters. After
// a hard cut, it backs off to the last comma or space so the prompt
// does not end mid-word, but only when that boundary is no earlier than
// boundaryFloor characters in. Trailing separators and whitespace are
// stripped. The second return reports whether truncation occurred.
func SanitizePromptN(prompt string, budget int) (string, bool) {
	prompt = strings.TrimSpace(prompt)
	if budget <= 0 {
		budget = PromptBudget
	}
	if len(prompt) <= budget {
		return prompt, false
	}

	cut := trimPartialRune(prompt[:budget])
	boundary := strings.LastIndexAny(cut, ", ")
	if boundary > boundaryFloor {
		cut = cut[:boundary]
	}
	cut = strings.TrimRight(cut, ", ")
	return strings.TrimSpace(cut), true
}

// trimPartialRune drops trailing bytes left over from a multibyte rune
// split by a byte-indexed cut, so truncation never emits invalid UTF-8.
func trimPartialRune(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// Slug derives a filesystem-safe fragment from a prompt for use in
// output filenames: the first slugSourceLen characters, restricted to
// alphanumerics, space, hyphen, and underscore, with spaces collapsed
// to underscores.
func Slug(prompt string) string {
	src := prompt
	if len(src) > slugSourceLen {
		src = trimPartialRune(src[:slugSourceLen])
	}

	var b strings.Builder
	for _, r := range src {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
