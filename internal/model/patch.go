package model

import "fmt"

// PatchSource identifies where a patch came from, usually a pull request.
type PatchSource struct {
	ID     int
	Title  string
	Author string
	URL    string
}

// Label returns the short display label, e.g. "#12: Fix typo".
func (s *PatchSource) Label() string {
	if s == nil {
		return ""
	}
	if s.Title == "" {
		return fmt.Sprintf("#%d", s.ID)
	}
	return fmt.Sprintf("#%d: %s", s.ID, s.Title)
}

// LineKind tags a line inside a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "context"
	}
}

// Marker returns the unified diff prefix for the kind.
func (k LineKind) Marker() string {
	switch k {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// HunkLine is one line of a hunk body.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is one contiguous change region of a patch.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string // text after the closing @@, if any
	Lines    []HunkLine
}

// Observed returns the old and new line counts implied by the hunk body.
func (h Hunk) Observed() (oldCount, newCount int) {
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext:
			oldCount++
			newCount++
		case LineRemoved:
			oldCount++
		case LineAdded:
			newCount++
		}
	}
	return oldCount, newCount
}

// Consistent reports whether the declared counts match the body.
func (h Hunk) Consistent() bool {
	o, n := h.Observed()
	return o == h.OldCount && n == h.NewCount
}

// StartCursor returns how many base lines precede the hunk.
// For a pure insertion (OldCount == 0) OldStart names the line after which
// the new lines go; otherwise it names the first line the hunk covers.
func (h Hunk) StartCursor() int {
	if h.OldCount == 0 {
		return h.OldStart
	}
	if h.OldStart < 1 {
		return 0
	}
	return h.OldStart - 1
}

// OldRange returns the base lines the hunk consumes, using the observed body.
func (h Hunk) OldRange() LineRange {
	start := h.StartCursor() + 1
	consumed, _ := h.Observed()
	return LineRange{Start: start, End: start + consumed - 1}
}

// Header renders the hunk header in unified diff form.
func (h Hunk) Header() string {
	old := fmt.Sprintf("-%d", h.OldStart)
	if h.OldCount != 1 {
		old += fmt.Sprintf(",%d", h.OldCount)
	}
	nw := fmt.Sprintf("+%d", h.NewStart)
	if h.NewCount != 1 {
		nw += fmt.Sprintf(",%d", h.NewCount)
	}
	header := fmt.Sprintf("@@ %s %s @@", old, nw)
	if h.Section != "" {
		header += " " + h.Section
	}
	return header
}

// Added returns the text of the hunk's added lines in order.
func (h Hunk) Added() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineAdded {
			out = append(out, l.Text)
		}
	}
	return out
}
