package services

import (
	"fmt"
	"strings"

	"chatdocs-rag/models"
)

// Tokenizer splits text into the units chunks are measured in. The default
// counts whitespace-separated words; callers with a sub-word tokenizer plug
// it in here.
type Tokenizer func(text string) []string

// WordTokenizer is the default whitespace tokenizer.
func WordTokenizer(text string) []string {
	return strings.Fields(text)
}

// Segmenter splits raw text into bounded, overlapping chunks sized for
// embedding. It is a pure function of its inputs: safe to share across
// goroutines.
type Segmenter struct {
	unitSize int
	overlap  int
	tokenize Tokenizer
}

// NewSegmenter validates the size/overlap pair up front. overlap >= unitSize
// would make the window walk backwards, so it is a configuration error, not
// something to clamp silently.
func NewSegmenter(unitSize, overlap int, tokenize Tokenizer) (*Segmenter, error) {
	if unitSize < 1 {
		return nil, fmt.Errorf("%w: chunk size must be >= 1, got %d", models.ErrConfiguration, unitSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", models.ErrConfiguration, overlap)
	}
	if overlap >= unitSize {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than chunk size (%d)", models.ErrConfiguration, overlap, unitSize)
	}
	if tokenize == nil {
		tokenize = WordTokenizer
	}
	return &Segmenter{unitSize: unitSize, overlap: overlap, tokenize: tokenize}, nil
}

// Segment splits one source unit's text into chunks of at most unitSize
// tokens, consecutive chunks sharing overlap tokens. Chunk ends snap to line
// boundaries where one falls inside the window, so lines are not broken
// mid-way. header, when non-empty, is prefixed verbatim to every chunk and
// does not count toward unitSize.
func (s *Segmenter) Segment(text, header string, unitIndex int) []models.TextChunk {
	tokens, lineEnds := s.tokenizeLines(text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []models.TextChunk
	start := 0
	for {
		end := start + s.unitSize
		if end >= len(tokens) {
			end = len(tokens)
		} else if b := lastLineEnd(lineEnds, start, end); b > start {
			end = b
		}

		content := strings.Join(tokens[start:end], " ")
		if header != "" {
			content = header + "\n" + content
		}
		chunks = append(chunks, models.TextChunk{
			Content:         content,
			SourceUnitIndex: unitIndex,
			SequenceInUnit:  len(chunks),
		})

		if end >= len(tokens) {
			break
		}

		// Move forward with overlap
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// tokenizeLines flattens the text into one token stream and records the
// token offsets at which lines end, so chunk boundaries can prefer them.
func (s *Segmenter) tokenizeLines(text string) ([]string, []int) {
	var tokens []string
	var lineEnds []int
	for _, line := range strings.Split(text, "\n") {
		lineTokens := s.tokenize(line)
		if len(lineTokens) == 0 {
			continue
		}
		tokens = append(tokens, lineTokens...)
		lineEnds = append(lineEnds, len(tokens))
	}
	return tokens, lineEnds
}

// lastLineEnd returns the largest line boundary in (start, end], or -1.
func lastLineEnd(lineEnds []int, start, end int) int {
	best := -1
	for _, b := range lineEnds {
		if b > start && b <= end {
			best = b
		}
		if b > end {
			break
		}
	}
	return best
}
