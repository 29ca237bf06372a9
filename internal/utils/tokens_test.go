package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

func TestCountTokensHeuristic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{
		"question":   "Which region leads?",
		"statistics": strings.Repeat("x", 400),
	})
	if got["statistics"] != 100 {
		t.Fatalf("statistics tokens=%d, want 100", got["statistics"])
	}
	if got["question"] < 1 {
		t.Fatalf("question tokens=%d, want >0", got["question"])
	}
}
