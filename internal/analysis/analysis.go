// Package analysis implements review passes over the pull requests that touch one file.
package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

// Finding represents a single analysis finding attached to a file and base line.
type Finding struct {
	Pass     string // which analysis pass produced this
	File     string
	Line     int // base line number, 0 if file-level
	PR       int // pull request the finding is about, 0 if it spans several
	Message  string
	Severity model.Severity
	Risk     model.RiskLevel
}

func (f Finding) String() string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	if f.PR > 0 {
		return fmt.Sprintf("[%s] %s (#%d): %s", f.Pass, loc, f.PR, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Pass, loc, f.Message)
}

// Subject is one base file together with every pull request that changes it.
type Subject struct {
	Path          string
	Blob          *model.Blob // nil when the base is not text
	Contributions []diff.Contribution
	Warnings      []model.Warning
	Overlay       *model.AnnotatedFile // interleaved view, nil when Blob is nil
}

// NewSubject interleaves contribs onto blob and records the engine warnings.
// extra carries warnings produced before the engine ran, such as fetch failures.
func NewSubject(path string, blob *model.Blob, contribs []diff.Contribution, extra ...model.Warning) *Subject {
	s := &Subject{Path: path, Blob: blob, Contributions: contribs}
	s.Warnings = append(s.Warnings, extra...)
	if blob != nil {
		s.Overlay = diff.Interleave(blob, contribs)
		s.Warnings = append(s.Warnings, s.Overlay.Warnings...)
	}
	return s
}

// Results holds all findings from running analysis passes.
type Results struct {
	Findings []Finding
}

// ByFile returns findings grouped by file path.
func (r *Results) ByFile() map[string][]Finding {
	m := make(map[string][]Finding)
	for _, f := range r.Findings {
		m[f.File] = append(m[f.File], f)
	}
	return m
}

// ByPR returns findings grouped by pull request number.
func (r *Results) ByPR() map[int][]Finding {
	m := make(map[int][]Finding)
	for _, f := range r.Findings {
		m[f.PR] = append(m[f.PR], f)
	}
	return m
}

// ByRisk returns findings at or above the given risk level.
func (r *Results) ByRisk(minRisk model.RiskLevel) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Risk >= minRisk {
			result = append(result, f)
		}
	}
	return result
}

// MaxRisk returns the highest risk level among all findings.
func (r *Results) MaxRisk() model.RiskLevel {
	highest := model.RiskInfo
	for _, f := range r.Findings {
		if f.Risk > highest {
			highest = f.Risk
		}
	}
	return highest
}

// Summary returns a one-line summary of findings.
func (r *Results) Summary() string {
	if len(r.Findings) == 0 {
		return "No issues found"
	}

	counts := make(map[model.RiskLevel]int)
	for _, f := range r.Findings {
		counts[f.Risk]++
	}

	var parts []string
	for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow, model.RiskInfo} {
		if c := counts[level]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, level))
		}
	}
	return strings.Join(parts, ", ")
}

// Pass analyzes one subject and returns findings.
type Pass func(s *Subject) []Finding

// NamedPass pairs a pass with the name used by --skip.
type NamedPass struct {
	Name string
	Run  Pass
}

// AllPasses returns every analysis pass in reporting order.
func AllPasses() []NamedPass {
	return []NamedPass{
		{"overlap", OverlapPass},
		{"hotspot", HotspotPass},
		{"warnings", WarningsPass},
		{"deps", NewDependencyPass},
		{"security", SecuritySurfacePass},
		{"deleted", DeletedCodePass},
		{"schema", SchemaChangePass},
		{"anti_patterns", AntiPatternPass},
	}
}

// PassNames returns the names accepted by --skip.
func PassNames() []string {
	var names []string
	for _, p := range AllPasses() {
		names = append(names, p.Name)
	}
	return names
}

// Run executes all passes (or a subset) over every subject and returns the
// aggregated results ordered by file, line and pass.
func Run(subjects []*Subject, skip []string) *Results {
	skipSet := make(map[string]bool)
	for _, s := range skip {
		skipSet[s] = true
	}

	results := &Results{}
	for _, subject := range subjects {
		for _, pass := range AllPasses() {
			if skipSet[pass.Name] {
				continue
			}
			results.Findings = append(results.Findings, pass.Run(subject)...)
		}
	}

	sort.SliceStable(results.Findings, func(i, j int) bool {
		a, b := results.Findings[i], results.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return results
}

// positionedLine is a hunk line with the base line it sits at. Added lines
// carry their anchor.
type positionedLine struct {
	model.HunkLine
	base int
}

// placed returns the hunks of c the overlay draws, so passes never report on
// hunks the engine dropped. Without a text base every hunk is kept where its
// header puts it.
func (s *Subject) placed(c diff.Contribution) []diff.PlacedHunk {
	if s.Blob != nil {
		return diff.Placed(s.Blob, c)
	}
	out := make([]diff.PlacedHunk, len(c.Hunks))
	for i, h := range c.Hunks {
		out[i] = diff.PlacedHunk{Start: h.StartCursor(), Hunk: h}
	}
	return out
}

// eachLine walks the drawn hunk lines of one contribution with base
// positions, clamped to the base like the overlay.
func (s *Subject) eachLine(c diff.Contribution, fn func(l positionedLine)) {
	limit := -1
	if s.Blob != nil {
		limit = s.Blob.Len()
	}
	for _, p := range s.placed(c) {
		cursor := p.Start
		for _, l := range p.Hunk.Lines {
			if l.Kind != model.LineAdded && (limit < 0 || cursor < limit) {
				cursor++
			}
			fn(positionedLine{HunkLine: l, base: cursor})
		}
	}
}

// addedLines returns the added lines of one contribution.
func (s *Subject) addedLines(c diff.Contribution) []positionedLine {
	var out []positionedLine
	s.eachLine(c, func(l positionedLine) {
		if l.Kind == model.LineAdded {
			out = append(out, l)
		}
	})
	return out
}

func prNumber(src *model.PatchSource) int {
	if src == nil {
		return 0
	}
	return src.ID
}

func isCommentLine(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*")
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
