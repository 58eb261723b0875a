package model

import "fmt"

// RowKind distinguishes base rows from added rows in an annotated file.
type RowKind int

const (
	RowBase RowKind = iota
	RowAdded
)

func (k RowKind) String() string {
	if k == RowAdded {
		return "added"
	}
	return "base"
}

// AddedLine is a line introduced by a patch, anchored after base line Anchor
// (0 means before the first base line).
type AddedLine struct {
	Text   string
	Anchor int
	Source *PatchSource
}

// Row is one display row of an annotated file.
type Row struct {
	Kind   RowKind
	Number int // base line number; the anchor for added rows
	Text   string
	Source *PatchSource
}

// AddedLine returns the row as an AddedLine when it is one.
func (r Row) AddedLine() (AddedLine, bool) {
	if r.Kind != RowAdded {
		return AddedLine{}, false
	}
	return AddedLine{Text: r.Text, Anchor: r.Number, Source: r.Source}, true
}

func (r Row) String() string {
	if r.Kind == RowAdded {
		id := 0
		if r.Source != nil {
			id = r.Source.ID
		}
		return fmt.Sprintf("added:%q by %d", r.Text, id)
	}
	return fmt.Sprintf("base:%q", r.Text)
}

// AnnotatedFile is the read-only result of applying or interleaving patches.
type AnnotatedFile struct {
	Path     string
	Rows     []Row
	Warnings []Warning
}

// Plain returns the row texts with annotations stripped.
func (f *AnnotatedFile) Plain() []string {
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.Text
	}
	return out
}

// Additions returns every added row in display order.
func (f *AnnotatedFile) Additions() []AddedLine {
	var out []AddedLine
	for _, r := range f.Rows {
		if a, ok := r.AddedLine(); ok {
			out = append(out, a)
		}
	}
	return out
}

// Stats returns the number of base rows, added rows and distinct sources.
func (f *AnnotatedFile) Stats() (base, added, sources int) {
	seen := make(map[int]bool)
	for _, r := range f.Rows {
		if r.Kind == RowAdded {
			added++
			if r.Source != nil && !seen[r.Source.ID] {
				seen[r.Source.ID] = true
				sources++
			}
			continue
		}
		base++
	}
	return base, added, sources
}
