package document

// Default window geometry for term-sheet text.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping fixed-size windows. Window i
// starts at i·(size−overlap); the final window may be shorter than the
// nominal size. Windows are measured in runes so multi-byte characters are
// never split.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker builds a chunker, falling back to defaults when the geometry is
// misconfigured (overlap must stay strictly below size).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 10
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the ordered windows covering text. Text shorter than one
// window yields exactly one window; no window is dropped for being short.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
