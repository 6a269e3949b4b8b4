package main

import (
	"testing"
	"unicode/utf8"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 10, []string{""}},
		{"fits", "warm and low", 20, []string{"warm and low"}},
		{"breaks on space", "a warm steady voice", 10, []string{"a warm", "steady", "voice"}},
		{"long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"zero width", "ab", 0, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWrapTextMultibyte(t *testing.T) {
	// Model output often carries curly quotes and accents.
	text := "A “warm”, café-smooth voice — low-pitched, with rounded vowels and an unhurried cadence."
	for width := 1; width <= 30; width++ {
		for _, line := range wrapText(text, width) {
			if !utf8.ValidString(line) {
				t.Fatalf("width %d: line %q splits a rune", width, line)
			}
			if n := utf8.RuneCountInString(line); n > width && width > 0 {
				t.Errorf("width %d: line %q is %d runes", width, line, n)
			}
		}
	}
}
