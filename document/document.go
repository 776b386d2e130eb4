package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Document is one logical unit of extracted text. The text is guaranteed
// non-empty by the extractor; a Document never exists without usable content.
type Document struct {
	Name string
	Text string
}

// Set is an ordered sequence of documents handed to an operation together.
// Most operations take one document; comparison takes two, where position 0
// is "Document A" and position 1 is "Document B".
type Set []Document

func New(name, text string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("document %q has no usable text", name)
	}
	return Document{Name: name, Text: text}, nil
}

func (s Set) Empty() bool {
	return len(s) == 0
}

// Label returns the framing label for the document at position i within a
// comparison set ("Document A", "Document B", ...).
func (s Set) Label(i int) string {
	return fmt.Sprintf("Document %c", 'A'+i)
}

// Fingerprint derives a deterministic identity for a document set under a
// given chunking and embedding configuration. Identical text processed the
// same way hashes to the same value, which makes it usable as an index
// cache key.
func Fingerprint(docs Set, chunkSize, chunkOverlap int, embeddingModel string) string {
	h := sha256.New()
	fmt.Fprintf(h, "chunk=%d overlap=%d model=%s\n", chunkSize, chunkOverlap, embeddingModel)
	for _, d := range docs {
		fmt.Fprintf(h, "doc=%s len=%d\n", d.Name, len(d.Text))
		h.Write([]byte(d.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
