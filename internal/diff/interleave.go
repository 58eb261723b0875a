package diff

import (
	"sort"

	"github.com/aezell/prview/internal/model"
)

// Contribution is one source's parsed hunks against a shared base.
type Contribution struct {
	Source *model.PatchSource
	Hunks  []model.Hunk
}

// RawPatch is one source's unparsed patch text against a shared base.
type RawPatch struct {
	Source *model.PatchSource
	Text   string
}

// Interleave overlays the additions of every contribution onto the base.
//
// This is a visualization, not a merge: every base line is shown exactly once
// whether or not some contribution removes it, and contributions are assumed
// to target the same base revision. Additions anchored at the same base
// position are grouped by source in ascending source ID order; each group
// keeps its patch order. Problems inside one contribution are recorded as
// warnings and never affect the others.
func Interleave(blob *model.Blob, contribs []Contribution) *model.AnnotatedFile {
	ordered := make([]Contribution, len(contribs))
	copy(ordered, contribs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sourceID(ordered[i].Source) < sourceID(ordered[j].Source)
	})

	n := blob.Len()
	anchored := make([][]model.Row, n+1)
	out := &model.AnnotatedFile{Path: blob.Path}

	for _, c := range ordered {
		if len(c.Hunks) == 0 {
			continue
		}
		planned, warnings := planHunks(blob, c.Source, c.Hunks)
		out.Warnings = append(out.Warnings, warnings...)

		for _, p := range planned {
			cursor := p.start
			for _, l := range p.hunk.Lines {
				switch l.Kind {
				case model.LineAdded:
					anchored[cursor] = append(anchored[cursor], model.Row{
						Kind:   model.RowAdded,
						Number: cursor,
						Text:   l.Text,
						Source: c.Source,
					})
				case model.LineContext, model.LineRemoved:
					if cursor < n {
						cursor++
					}
				}
			}
		}
	}

	out.Rows = make([]model.Row, 0, n+countRows(anchored))
	out.Rows = append(out.Rows, anchored[0]...)
	for i := 1; i <= n; i++ {
		out.Rows = append(out.Rows, model.Row{Kind: model.RowBase, Number: i, Text: blob.Lines[i-1]})
		out.Rows = append(out.Rows, anchored[i]...)
	}
	return out
}

// ParsePatches parses each raw patch in order. Patches that do not parse
// are left out and reported as WarnMalformedPatch warnings.
func ParsePatches(patches []RawPatch) ([]Contribution, []model.Warning) {
	var (
		contribs []Contribution
		skipped  []model.Warning
	)
	for _, p := range patches {
		hunks, err := ParseHunks(p.Text)
		if err != nil {
			skipped = append(skipped, malformedWarning(p.Source, err))
			continue
		}
		contribs = append(contribs, Contribution{Source: p.Source, Hunks: hunks})
	}
	return contribs, skipped
}

// InterleavePatches parses each raw patch and interleaves the ones that parse.
// Unparseable patches are skipped with a WarnMalformedPatch warning.
func InterleavePatches(blob *model.Blob, patches []RawPatch) *model.AnnotatedFile {
	contribs, skipped := ParsePatches(patches)
	sort.SliceStable(skipped, func(i, j int) bool {
		return sourceID(skipped[i].Source) < sourceID(skipped[j].Source)
	})
	out := Interleave(blob, contribs)
	if len(skipped) > 0 {
		out.Warnings = append(skipped, out.Warnings...)
	}
	return out
}

func sourceID(s *model.PatchSource) int {
	if s == nil {
		return 0
	}
	return s.ID
}

func countRows(groups [][]model.Row) int {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	return total
}
