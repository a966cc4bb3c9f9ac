package chunker

import (
	"fmt"
	"strings"
)

// Splitter cuts raw document text into overlapping fixed-size windows.
// Consecutive windows share Overlap characters so that retrieval never loses
// the context sitting on a split boundary.
type Splitter struct {
	Size    int
	Overlap int
}

// New returns a Splitter. Overlap must be strictly smaller than Size,
// otherwise the window would never advance.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap %d must be in [0, %d)", overlap, size)
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split returns the chunks of text in original order. Sizes are counted in
// runes so a multi-byte character is never cut in half. Text that fits in a
// single window comes back as one chunk; empty or blank text yields none.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	step := s.Size - s.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
