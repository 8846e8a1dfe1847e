package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(1000, 200)
	assert.Nil(t, s.Split("walden.txt", ""))
	assert.Nil(t, s.Split("walden.txt", "   \n\t  "))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("walden.txt", "I went to the woods because I wished to live deliberately.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "walden.txt", chunks[0].Source)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The mass of men lead lives of quiet desperation. ")
	}
	s := NewSplitter(1000, 200)
	chunks := s.Split("walden.txt", b.String())
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 1000)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestSplitOverlapsNeighbours(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Simplicity, simplicity, simplicity! ")
	}
	s := NewSplitter(500, 100)
	chunks := s.Split("walden.txt", b.String())
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].Start, chunks[i-1].End, "chunk %d should overlap its predecessor", i)
	}
}

func TestSplitIndexesAreSequential(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("Time is but the stream I go a-fishing in. ")
	}
	chunks := NewSplitter(400, 80).Split("walden.txt", b.String())
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestNewSplitterClampsBadValues(t *testing.T) {
	s := NewSplitter(0, -5)
	chunks := s.Split("x", strings.Repeat("word ", 500))
	assert.NotEmpty(t, chunks)
}
