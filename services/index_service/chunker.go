package index_service

import (
	"strings"

	"github.com/juridoc/juridoc/document"
)

// Chunk is a contiguous slice of a document's text sized for embedding,
// tagged with the position of its source document within the set.
type Chunk struct {
	DocIndex   int
	ChunkIndex int
	Text       string
}

// Chunker splits documents into fixed-size rune windows with overlap.
// Window boundaries prefer the last whitespace inside the tail of the
// window so chunks do not cut words in half.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 6
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) ChunkSet(docs document.Set) []Chunk {
	var chunks []Chunk
	for docIdx, doc := range docs {
		for chunkIdx, text := range c.split(doc.Text) {
			chunks = append(chunks, Chunk{
				DocIndex:   docIdx,
				ChunkIndex: chunkIdx,
				Text:       text,
			})
		}
	}
	return chunks
}

func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back off to a whitespace boundary if one is near.
			cut := end
			for cut > start+c.size/2 && !isSpace(runes[cut-1]) {
				cut--
			}
			if cut > start+c.size/2 {
				end = cut
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}

		if end == len(runes) {
			break
		}
		start = c.restart(runes, start, end)
	}
	return out
}

// restart picks where the next window opens: c.overlap runes back from the
// cut, moved to the nearest word start so a chunk never begins mid-word.
// The start always advances, even when the overlap exceeds what the
// backed-off window left behind.
func (c *Chunker) restart(runes []rune, start, end int) int {
	next := end - c.overlap
	if next <= start {
		next = start + 1
	}
	for next > start+1 && !wordStart(runes, next) {
		next--
	}
	for next < end && !wordStart(runes, next) {
		next++
	}
	return next
}

// wordStart reports whether position i opens a word: a non-space rune
// preceded by a space or the text start.
func wordStart(runes []rune, i int) bool {
	return !isSpace(runes[i]) && (i == 0 || isSpace(runes[i-1]))
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
