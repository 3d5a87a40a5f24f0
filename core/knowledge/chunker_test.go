package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200)

	spans := c.Split("short document")
	require.Len(t, spans, 1)
	assert.Equal(t, "short document", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len([]rune("short document")), spans[0].End)
}

func TestSplitEmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	assert.Nil(t, c.Split(""))
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("abcdefghij", 350) // 3500 runes

	spans := c.Split(text)
	require.Greater(t, len(spans), 1)

	runes := []rune(text)

	// Re-joining covered spans must reproduce the document with no gaps.
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len(runes), spans[len(spans)-1].End)
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		assert.LessOrEqual(t, cur.Start, prev.End, "gap between span %d and %d", i-1, i)

		// Adjacent chunks overlap by exactly the configured overlap,
		// except at the document boundary.
		assert.Equal(t, 200, prev.End-cur.Start, "overlap between span %d and %d", i-1, i)
	}

	for _, span := range spans {
		assert.Equal(t, string(runes[span.Start:span.End]), span.Text)
	}
}

func TestSplitExactWindowBoundary(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("x", 1000)

	spans := c.Split(text)
	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text)
}

func TestSplitMultibyteRunes(t *testing.T) {
	c := NewChunker(10, 2)
	text := strings.Repeat("héllo wörld ", 10)

	spans := c.Split(text)
	require.NotEmpty(t, spans)

	runes := []rune(text)
	for _, span := range spans {
		assert.Equal(t, string(runes[span.Start:span.End]), span.Text)
	}
	assert.Equal(t, len(runes), spans[len(spans)-1].End)
}

func TestNewChunkerClampsBadConfig(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultWindowSize, c.WindowSize())
	assert.Equal(t, DefaultOverlap, c.Overlap())

	// Overlap must stay below the window.
	c = NewChunker(100, 100)
	assert.Less(t, c.Overlap(), c.WindowSize())
}
