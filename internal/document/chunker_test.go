package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCoversWholeText(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("abcdefghij", 50) // 500 runes

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	// Every window except the last is full-size.
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.Len(t, []rune(chunk), 100, "chunk %d", i)
	}

	// Adjacent windows share exactly the configured overlap.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		tail := string(prev[len(prev)-20:])
		overlap := 20
		if len(cur) < overlap {
			overlap = len(cur)
			tail = string(prev[len(prev)-20 : len(prev)-20+overlap])
		}
		assert.Equal(t, tail, string(cur[:overlap]), "overlap between chunks %d and %d", i-1, i)
	}

	// Dropping each window's leading overlap reconstructs the original.
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, chunk := range chunks[1:] {
		r := []rune(chunk)
		if len(r) > 20 {
			sb.WriteString(string(r[20:]))
		}
	}
	assert.Equal(t, text, sb.String())
}

func TestSplitShortText(t *testing.T) {
	c := NewChunker(2000, 200)
	chunks := c.Split("um parágrafo curto")
	require.Len(t, chunks, 1)
	assert.Equal(t, "um parágrafo curto", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	c := NewChunker(2000, 200)
	chunks := c.Split("")
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0])
}

func TestSplitMultiByteBoundaries(t *testing.T) {
	c := NewChunker(10, 2)
	text := strings.Repeat("çãé", 20)
	chunks := c.Split(text)
	for i, chunk := range chunks {
		assert.True(t, strings.ContainsAny(chunk, "çãé"), "chunk %d lost its runes", i)
		for _, r := range chunk {
			assert.NotEqual(t, '�', r, "chunk %d split a rune", i)
		}
	}
}

func TestNewChunkerMisconfigFallsBack(t *testing.T) {
	c := NewChunker(100, 100)
	chunks := c.Split(strings.Repeat("x", 300))
	assert.Greater(t, len(chunks), 1, "overlap >= size must not stall the window")

	c = NewChunker(0, -1)
	assert.NotPanics(t, func() { c.Split("texto") })
}
