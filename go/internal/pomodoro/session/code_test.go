package session

import (
	"strings"
	"testing"
)

func TestGenerateCode_ShapeAndAlphabet(t *testing.T) {
	for i := 0; i < 2000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), CodeLength)
		}
		if strings.ContainsAny(code, "O0I1L") {
			t.Fatalf("code %q contains an ambiguous symbol", code)
		}
		if !ValidCode(code) {
			t.Fatalf("ValidCode(%q) = false", code)
		}
	}
}

func TestCodeAlphabet_ExcludesAmbiguousSymbols(t *testing.T) {
	if strings.ContainsAny(CodeAlphabet, "O0I1L") {
		t.Fatalf("alphabet %q contains an ambiguous symbol", CodeAlphabet)
	}
	seen := make(map[rune]bool)
	for _, r := range CodeAlphabet {
		if seen[r] {
			t.Fatalf("alphabet repeats %q", r)
		}
		seen[r] = true
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"K7N4PX", true},
		{"ZZZZZZ", true},
		{"K7N4P", false},
		{"K7N4PXX", false},
		{"K7N4P0", false},
		{"k7n4px", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidCode(tt.code); got != tt.want {
			t.Errorf("ValidCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
