package services

import (
	"regexp"
	"strings"
)

// BaseChunkSize is the planner's baseline chunk size in words.
const BaseChunkSize = 200

var sentenceRegex = regexp.MustCompile(`[.!?]+[\s]+`)

// SizePlanner derives a chunk size/overlap pair from simple document
// heuristics. Both methods are pure; explicit size/overlap on the ingestion
// request always takes precedence over the planner.
type SizePlanner struct {
	base int
}

func NewSizePlanner() *SizePlanner {
	return &SizePlanner{base: BaseChunkSize}
}

// PlanChunkSize sizes chunks by document length, then widens them for
// complex prose: long sentences need more surrounding context to stay
// meaningful.
func (p *SizePlanner) PlanChunkSize(text string) int {
	words := len(strings.Fields(text))

	size := p.base
	switch {
	case words < 500:
		size = p.base / 2
	case words > 2000:
		size = p.base * 2
	}

	if avgWordsPerSentence(text) > 20 {
		size = size * 3 / 2
	}

	return size
}

// PlanOverlap returns the overlap in words for a given chunk size. Smaller
// chunks get proportionally more overlap to preserve cross-chunk context;
// larger chunks are already self-contained.
func (p *SizePlanner) PlanOverlap(unitSize int) int {
	switch {
	case unitSize < 150:
		return unitSize * 25 / 100
	case unitSize < 300:
		return unitSize * 30 / 100
	case unitSize < 500:
		return unitSize * 25 / 100
	default:
		return unitSize * 20 / 100
	}
}

func avgWordsPerSentence(text string) float64 {
	sentences := sentenceRegex.Split(text, -1)
	count := 0
	words := 0
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		count++
		words += n
	}
	if count == 0 {
		return 0
	}
	return float64(words) / float64(count)
}
