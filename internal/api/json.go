package api

import (
	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

type sourceJSON struct {
	ID     int    `json:"id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (s sourceJSON) model() *model.PatchSource {
	return &model.PatchSource{ID: s.ID, Title: s.Title, Author: s.Author, URL: s.URL}
}

func toSourceJSON(s *model.PatchSource) *sourceJSON {
	if s == nil {
		return nil
	}
	return &sourceJSON{ID: s.ID, Title: s.Title, Author: s.Author, URL: s.URL}
}

// patchJSON is one source's raw patch in a request.
type patchJSON struct {
	Source sourceJSON `json:"source"`
	Patch  string     `json:"patch"`
}

func (p patchJSON) raw() diff.RawPatch {
	return diff.RawPatch{Source: p.Source.model(), Text: p.Patch}
}

type lineJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type hunkJSON struct {
	Header     string     `json:"header"`
	OldStart   int        `json:"old_start"`
	OldCount   int        `json:"old_count"`
	NewStart   int        `json:"new_start"`
	NewCount   int        `json:"new_count"`
	Section    string     `json:"section,omitempty"`
	Consistent bool       `json:"consistent"`
	Lines      []lineJSON `json:"lines"`
}

func toHunksJSON(hunks []model.Hunk) []hunkJSON {
	out := make([]hunkJSON, 0, len(hunks))
	for _, h := range hunks {
		hj := hunkJSON{
			Header:     h.Header(),
			OldStart:   h.OldStart,
			OldCount:   h.OldCount,
			NewStart:   h.NewStart,
			NewCount:   h.NewCount,
			Section:    h.Section,
			Consistent: h.Consistent(),
			Lines:      make([]lineJSON, 0, len(h.Lines)),
		}
		for _, l := range h.Lines {
			hj.Lines = append(hj.Lines, lineJSON{Kind: l.Kind.String(), Text: l.Text})
		}
		out = append(out, hj)
	}
	return out
}

type rowJSON struct {
	Kind   string      `json:"kind"`
	Number int         `json:"number"`
	Text   string      `json:"text"`
	Source *sourceJSON `json:"source,omitempty"`
}

type warningJSON struct {
	Kind    string `json:"kind"`
	Source  int    `json:"source,omitempty"`
	Hunk    int    `json:"hunk"`
	Message string `json:"message"`
}

type annotatedStatsJSON struct {
	Base    int `json:"base"`
	Added   int `json:"added"`
	Sources int `json:"sources"`
}

type annotatedJSON struct {
	Path     string             `json:"path"`
	View     int                `json:"view"` // 0 for the interleaved view, else a source id
	Rows     []rowJSON          `json:"rows"`
	Warnings []warningJSON      `json:"warnings"`
	Stats    annotatedStatsJSON `json:"stats"`
}

func toAnnotatedJSON(f *model.AnnotatedFile, view int) annotatedJSON {
	out := annotatedJSON{
		Path:     f.Path,
		View:     view,
		Rows:     make([]rowJSON, 0, len(f.Rows)),
		Warnings: toWarningsJSON(f.Warnings),
	}
	for _, r := range f.Rows {
		out.Rows = append(out.Rows, rowJSON{
			Kind:   r.Kind.String(),
			Number: r.Number,
			Text:   r.Text,
			Source: toSourceJSON(r.Source),
		})
	}
	out.Stats.Base, out.Stats.Added, out.Stats.Sources = f.Stats()
	return out
}

func toWarningsJSON(ws []model.Warning) []warningJSON {
	out := make([]warningJSON, 0, len(ws))
	for _, w := range ws {
		wj := warningJSON{Kind: w.Kind.String(), Hunk: w.Hunk, Message: w.Message}
		if w.Source != nil {
			wj.Source = w.Source.ID
		}
		out = append(out, wj)
	}
	return out
}

type findingJSON struct {
	Pass     string `json:"pass"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	PR       int    `json:"pr,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Risk     string `json:"risk"`
}

type analysisJSON struct {
	Summary  string        `json:"summary"`
	MaxRisk  string        `json:"max_risk"`
	Total    int           `json:"total"`
	Findings []findingJSON `json:"findings"`
}

func toAnalysisJSON(results *analysis.Results) analysisJSON {
	out := analysisJSON{
		Summary:  results.Summary(),
		MaxRisk:  results.MaxRisk().String(),
		Total:    len(results.Findings),
		Findings: []findingJSON{},
	}
	for _, f := range results.Findings {
		out.Findings = append(out.Findings, findingJSON{
			Pass:     f.Pass,
			File:     f.File,
			Line:     f.Line,
			PR:       f.PR,
			Message:  f.Message,
			Severity: f.Severity.String(),
			Risk:     f.Risk.String(),
		})
	}
	return out
}
