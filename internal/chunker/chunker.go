package chunker

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one slice of source text destined for the passage index.
// Start and End are byte offsets into the original document.
type Chunk struct {
	Source string
	Text   string
	Start  int
	End    int
	Index  int
}

// Splitter cuts documents into character-bounded chunks with overlap
// between neighbours, preferring to break on whitespace.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter with the given chunk size and overlap,
// both in bytes. Invalid values fall back to 1000/200.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts the document into chunks. Empty or whitespace-only input
// yields no chunks.
func (s *Splitter) Split(source, text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []Chunk
	idx := 0
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.breakpoint(text, start, end)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, Chunk{
				Source: source,
				Text:   piece,
				Start:  start,
				End:    end,
				Index:  idx,
			})
			idx++
		}
		if end == len(text) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakpoint moves the cut left to the nearest paragraph, line, or word
// boundary, searching no further back than the overlap window. Falls
// back to a rune boundary when the text has no whitespace there.
func (s *Splitter) breakpoint(text string, start, end int) int {
	floor := end - s.overlap
	if floor < start+1 {
		floor = start + 1
	}
	window := text[floor:end]
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	for end > floor && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}
