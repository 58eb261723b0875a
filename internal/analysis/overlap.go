package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aezell/prview/internal/model"
)

// HotspotThreshold is the number of pull requests inserting at one anchor
// that makes the anchor a hotspot.
const HotspotThreshold = 3

type changedRange struct {
	pr  int
	rng model.LineRange
}

// OverlapPass reports pairs of pull requests whose hunks change the same base lines.
func OverlapPass(s *Subject) []Finding {
	var ranges []changedRange
	for _, c := range s.Contributions {
		for _, p := range s.placed(c) {
			if r := changedLines(p.Hunk); !r.Empty() {
				ranges = append(ranges, changedRange{pr: prNumber(c.Source), rng: r})
			}
		}
	}

	type pair struct{ a, b int }
	reported := make(map[pair]bool)
	var findings []Finding
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.pr == b.pr || !a.rng.Overlaps(b.rng) {
				continue
			}
			p := pair{min(a.pr, b.pr), max(a.pr, b.pr)}
			if reported[p] {
				continue
			}
			reported[p] = true
			start := max(a.rng.Start, b.rng.Start)
			end := min(a.rng.End, b.rng.End)
			findings = append(findings, Finding{
				Pass:     "overlap",
				File:     s.Path,
				Line:     start,
				Message:  fmt.Sprintf("PRs #%d and #%d both change %s", p.a, p.b, describeRange(start, end)),
				Severity: model.SeverityWarning,
				Risk:     model.RiskHigh,
			})
		}
	}
	return findings
}

// changedLines returns the base lines a hunk removes. Context lines are not
// changes, so two PRs sharing context do not overlap.
func changedLines(h model.Hunk) model.LineRange {
	cursor := h.StartCursor()
	r := model.LineRange{Start: 0, End: -1}
	for _, l := range h.Lines {
		if l.Kind == model.LineAdded {
			continue
		}
		cursor++
		if l.Kind != model.LineRemoved {
			continue
		}
		if r.Empty() {
			r.Start = cursor
		}
		r.End = cursor
	}
	return r
}

func describeRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("line %d", start)
	}
	return fmt.Sprintf("lines %d-%d", start, end)
}

// HotspotPass reports anchors where several pull requests insert lines.
func HotspotPass(s *Subject) []Finding {
	if s.Overlay == nil {
		return nil
	}
	byAnchor := make(map[int]map[int]bool)
	for _, a := range s.Overlay.Additions() {
		if byAnchor[a.Anchor] == nil {
			byAnchor[a.Anchor] = make(map[int]bool)
		}
		byAnchor[a.Anchor][prNumber(a.Source)] = true
	}

	anchors := make([]int, 0, len(byAnchor))
	for anchor := range byAnchor {
		anchors = append(anchors, anchor)
	}
	sort.Ints(anchors)

	var findings []Finding
	for _, anchor := range anchors {
		prs := byAnchor[anchor]
		if len(prs) < HotspotThreshold {
			continue
		}
		ids := make([]int, 0, len(prs))
		for id := range prs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		labels := make([]string, len(ids))
		for i, id := range ids {
			labels[i] = fmt.Sprintf("#%d", id)
		}
		where := fmt.Sprintf("after line %d", anchor)
		if anchor == 0 {
			where = "at the top of the file"
		}
		findings = append(findings, Finding{
			Pass:     "hotspot",
			File:     s.Path,
			Line:     anchor,
			Message:  fmt.Sprintf("%d PRs insert %s: %s", len(ids), where, strings.Join(labels, ", ")),
			Severity: model.SeverityWarning,
			Risk:     model.RiskMedium,
		})
	}
	return findings
}

// WarningsPass turns engine warnings into findings.
func WarningsPass(s *Subject) []Finding {
	var findings []Finding
	for _, w := range s.Warnings {
		findings = append(findings, Finding{
			Pass:     "warnings",
			File:     s.Path,
			PR:       prNumber(w.Source),
			Message:  fmt.Sprintf("%s: %s", w.Kind, w.Message),
			Severity: model.SeverityInfo,
			Risk:     model.RiskLow,
		})
	}
	return findings
}
