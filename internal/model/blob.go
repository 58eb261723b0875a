package model

import (
	"fmt"
	"strings"
)

// Blob is the immutable text of a file at one revision.
type Blob struct {
	Path  string
	Text  string
	Lines []string
}

// NewBlob builds a Blob from raw bytes, normalizing line endings.
// A trailing newline does not produce an empty final line.
func NewBlob(path string, data []byte) *Blob {
	text := NormalizeNewlines(string(data))
	return &Blob{
		Path:  path,
		Text:  text,
		Lines: SplitLines(text),
	}
}

// Len returns the number of lines in the blob.
func (b *Blob) Len() int {
	return len(b.Lines)
}

// Line returns the 1-based line n, or false if n is out of range.
func (b *Blob) Line(n int) (string, bool) {
	if n < 1 || n > len(b.Lines) {
		return "", false
	}
	return b.Lines[n-1], true
}

// NormalizeNewlines converts \r\n and lone \r to \n.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// SplitLines splits normalized text into lines without a phantom empty line
// after a trailing newline.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// ContentKind classifies a fetched file before it reaches the overlay engine.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentBinary
	ContentOversized
	ContentMissing
)

func (k ContentKind) String() string {
	switch k {
	case ContentText:
		return "text"
	case ContentBinary:
		return "binary"
	case ContentOversized:
		return "oversized"
	case ContentMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// FileContent is the closed set of file variants produced by the fetch layer.
// Only ContentText carries a Blob.
type FileContent struct {
	Kind ContentKind
	Path string
	Size int64
	Blob *Blob
}

// Placeholder returns the text shown instead of content for non-text variants.
func (c FileContent) Placeholder() string {
	switch c.Kind {
	case ContentBinary:
		return fmt.Sprintf("[Binary File - Content not displayed. Size: %d bytes]", c.Size)
	case ContentOversized:
		return fmt.Sprintf("[File Too Large (%dKB) - Content not displayed directly.]", c.Size/1024)
	case ContentMissing:
		return "[Content not available or error fetching content]"
	default:
		return ""
	}
}
