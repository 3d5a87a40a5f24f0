package knowledge

// Chunker splits text into fixed-size overlapping windows. The overlap
// guarantees no semantic unit of interest is fully excluded by a chunk
// boundary.
type Chunker struct {
	windowSize int
	overlap    int
}

const (
	// DefaultWindowSize is the chunk window in runes.
	DefaultWindowSize = 1000

	// DefaultOverlap is the number of runes shared by adjacent chunks.
	DefaultOverlap = 200
)

// NewChunker creates a chunker. Non-positive or inconsistent values fall
// back to the defaults; overlap must stay smaller than the window.
func NewChunker(windowSize, overlap int) *Chunker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= windowSize {
		overlap = windowSize / 5
	}
	return &Chunker{windowSize: windowSize, overlap: overlap}
}

// Span is a chunk of text with its rune offsets in the source document.
type Span struct {
	Text  string
	Start int
	End   int
}

// Split windows text into overlapping spans. Adjacent spans overlap by
// exactly the configured overlap except at the document end, and the spans
// jointly cover the full input with no gaps.
func (c *Chunker) Split(text string) []Span {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	if len(runes) <= c.windowSize {
		return []Span{{Text: text, Start: 0, End: len(runes)}}
	}

	step := c.windowSize - c.overlap

	var spans []Span
	for start := 0; start < len(runes); start += step {
		end := start + c.windowSize
		if end >= len(runes) {
			spans = append(spans, Span{
				Text:  string(runes[start:]),
				Start: start,
				End:   len(runes),
			})
			break
		}
		spans = append(spans, Span{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
	}

	return spans
}

// WindowSize returns the configured window size in runes.
func (c *Chunker) WindowSize() int { return c.windowSize }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
