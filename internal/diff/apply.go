package diff

import (
	"fmt"
	"sort"

	"github.com/aezell/prview/internal/model"
)

// plannedHunk is a hunk that survived overlap checks, with its clamped start.
type plannedHunk struct {
	index int // position in the caller's slice
	start int // base lines preceding the hunk, clamped to the blob length
	hunk  model.Hunk
}

// planHunks orders a single source's hunks by start, drops any hunk whose old
// range intersects an earlier kept hunk and records warnings for inconsistent
// counts and context that does not match the base.
func planHunks(blob *model.Blob, src *model.PatchSource, hunks []model.Hunk) ([]plannedHunk, []model.Warning) {
	order := make([]int, len(hunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return hunks[order[a]].StartCursor() < hunks[order[b]].StartCursor()
	})

	n := blob.Len()
	var (
		planned  []plannedHunk
		warnings []model.Warning
		end      = -1
	)
	for _, idx := range order {
		h := hunks[idx]
		start := h.StartCursor()
		consumed, added := h.Observed()

		if start < end {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnOverlappingHunks,
				Source:  src,
				Hunk:    idx,
				Message: fmt.Sprintf("%s overlaps an earlier hunk ending at line %d; dropped", h.Header(), end),
			})
			continue
		}
		end = start + consumed

		if consumed != h.OldCount || added != h.NewCount {
			warnings = append(warnings, model.Warning{
				Kind:   model.WarnInconsistentCounts,
				Source: src,
				Hunk:   idx,
				Message: fmt.Sprintf("%s declares %d old / %d new lines but has %d / %d",
					h.Header(), h.OldCount, h.NewCount, consumed, added),
			})
		}
		if msg := contextMismatch(blob, start, h); msg != "" {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnContextMismatch,
				Source:  src,
				Hunk:    idx,
				Message: msg,
			})
		}

		if start > n {
			start = n
		}
		planned = append(planned, plannedHunk{index: idx, start: start, hunk: h})
	}
	return planned, warnings
}

// PlacedHunk is a hunk the overlay engine draws, with the number of base
// lines before it clamped to the base length.
type PlacedHunk struct {
	Start int
	Hunk  model.Hunk
}

// Placed returns the hunks of c that Apply and Interleave keep, in base order.
func Placed(blob *model.Blob, c Contribution) []PlacedHunk {
	planned, _ := planHunks(blob, c.Source, c.Hunks)
	out := make([]PlacedHunk, len(planned))
	for i, p := range planned {
		out[i] = PlacedHunk{Start: p.start, Hunk: p.hunk}
	}
	return out
}

// contextMismatch reports the first place the hunk disagrees with the base.
func contextMismatch(blob *model.Blob, start int, h model.Hunk) string {
	n := blob.Len()
	if start > n {
		return fmt.Sprintf("%s starts after the end of the base (%d lines)", h.Header(), n)
	}
	cursor := start
	for _, l := range h.Lines {
		if l.Kind == model.LineAdded {
			continue
		}
		cursor++
		base, ok := blob.Line(cursor)
		if !ok {
			return fmt.Sprintf("%s runs past the end of the base (%d lines)", h.Header(), n)
		}
		if base != l.Text {
			return fmt.Sprintf("%s expects %q at line %d, base has %q", h.Header(), l.Text, cursor, base)
		}
	}
	return ""
}

// Apply renders the base with one source's hunks applied for display. Removed
// lines are left out, added lines are tagged with src and every other line is
// the base line it corresponds to.
func Apply(blob *model.Blob, src *model.PatchSource, hunks []model.Hunk) *model.AnnotatedFile {
	planned, warnings := planHunks(blob, src, hunks)
	out := &model.AnnotatedFile{
		Path:     blob.Path,
		Rows:     make([]model.Row, 0, blob.Len()),
		Warnings: warnings,
	}

	n := blob.Len()
	cursor := 0
	emitBase := func() {
		out.Rows = append(out.Rows, model.Row{Kind: model.RowBase, Number: cursor + 1, Text: blob.Lines[cursor]})
		cursor++
	}

	for _, p := range planned {
		for cursor < p.start {
			emitBase()
		}
		for _, l := range p.hunk.Lines {
			switch l.Kind {
			case model.LineAdded:
				out.Rows = append(out.Rows, model.Row{Kind: model.RowAdded, Number: cursor, Text: l.Text, Source: src})
			case model.LineContext:
				if cursor < n {
					emitBase()
				}
			case model.LineRemoved:
				if cursor < n {
					cursor++
				}
			}
		}
	}
	for cursor < n {
		emitBase()
	}
	return out
}

// ApplyPatch parses raw patch text and applies it. A malformed patch yields
// the unmodified base plus a warning.
func ApplyPatch(blob *model.Blob, p RawPatch) *model.AnnotatedFile {
	hunks, err := ParseHunks(p.Text)
	if err != nil {
		out := Apply(blob, p.Source, nil)
		out.Warnings = append(out.Warnings, malformedWarning(p.Source, err))
		return out
	}
	return Apply(blob, p.Source, hunks)
}

func malformedWarning(src *model.PatchSource, err error) model.Warning {
	return model.Warning{
		Kind:    model.WarnMalformedPatch,
		Source:  src,
		Hunk:    -1,
		Message: err.Error(),
	}
}
