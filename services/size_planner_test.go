package services

import (
	"strings"
	"testing"
)

// proseWords builds n words of short-sentence prose so the complexity
// heuristic stays quiet.
func proseWords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("word")
		if (i+1)%8 == 0 {
			b.WriteString(". ")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestPlanChunkSizeByLength(t *testing.T) {
	p := NewSizePlanner()

	cases := []struct {
		name  string
		words int
		want  int
	}{
		{"short doc halves the base", 100, 100},
		{"medium doc keeps the base", 1000, 200},
		{"long doc doubles the base", 3000, 400},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.PlanChunkSize(proseWords(tc.words)); got != tc.want {
				t.Fatalf("PlanChunkSize(%d words) = %d, want %d", tc.words, got, tc.want)
			}
		})
	}
}

func TestPlanChunkSizeComplexity(t *testing.T) {
	p := NewSizePlanner()

	// 100 words with no sentence breaks: one long run, avg > 20
	text := strings.Repeat("word ", 100)
	if got := p.PlanChunkSize(text); got != 150 {
		t.Fatalf("PlanChunkSize(dense text) = %d, want 150", got)
	}
}

func TestPlanChunkSizeDeterministic(t *testing.T) {
	p := NewSizePlanner()
	text := proseWords(777)
	first := p.PlanChunkSize(text)
	for i := 0; i < 5; i++ {
		if got := p.PlanChunkSize(text); got != first {
			t.Fatalf("plan changed between runs: %d vs %d", got, first)
		}
	}
}

func TestPlanOverlapBands(t *testing.T) {
	p := NewSizePlanner()

	cases := []struct {
		size int
		want int
	}{
		{100, 25},
		{149, 37},
		{150, 45},
		{200, 60},
		{300, 75},
		{400, 100},
		{500, 100},
		{600, 120},
	}

	for _, tc := range cases {
		if got := p.PlanOverlap(tc.size); got != tc.want {
			t.Fatalf("PlanOverlap(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}
