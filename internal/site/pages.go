package site

import (
	"fmt"
	"strings"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/model"
	"github.com/aezell/prview/internal/snapshot"
)

type rowData struct {
	Number int // base line number, or the anchor for added rows
	Added  bool
	Source string
	Tokens []diff.Token
}

type viewData struct {
	ID       string
	Label    string
	URL      string // pull request on GitHub
	Link     string // local pull request page
	Rows     []rowData
	Stats    string
	Warnings []string
}

type fileData struct {
	pageMeta
	Path        string
	Placeholder string
	Views       []viewData
	PRs         []prLink
	Findings    []analysis.Finding
}

func (b *Builder) writeFilePage(repoPath string, content model.FileContent, findings []analysis.Finding) error {
	page := FilePage(repoPath)
	dest, err := b.pagePath(page)
	if err != nil {
		return err
	}

	d := fileData{pageMeta: b.meta(page), Path: repoPath, Findings: findings}
	touching := b.Snapshot.Touching(repoPath)
	for _, pr := range touching {
		d.PRs = append(d.PRs, prLink{
			Number: pr.Number,
			Title:  pr.Title,
			Author: pr.Author,
			URL:    pr.HTMLURL,
			Link:   PRPage(pr.Number),
		})
	}

	if content.Kind != model.ContentText {
		d.Placeholder = content.Placeholder()
		return b.render(dest, "file.html", d)
	}

	blob := content.Blob
	baseHL := diff.HighlightLines(repoPath, b.Style, blob.Lines)

	base := viewData{ID: "base", Label: "Base content"}
	for i := range blob.Lines {
		base.Rows = append(base.Rows, rowData{Number: i + 1, Tokens: baseHL[i].Tokens})
	}
	base.Stats = fmt.Sprintf("%d lines", blob.Len())
	d.Views = append(d.Views, base)

	if len(touching) > 0 {
		subject := b.Snapshot.Subject(repoPath)
		if subject.Overlay != nil {
			v := b.view(repoPath, subject.Overlay, baseHL)
			v.ID, v.Label = "interleaved", "All PR additions (interleaved)"
			v.Warnings = warningStrings(subject.Warnings)
			d.Views = append(d.Views, v)
		}
	}

	for _, pr := range touching {
		applied, ok := b.Snapshot.Applied(repoPath, pr.Number)
		if !ok {
			continue
		}
		v := b.view(repoPath, applied, baseHL)
		v.ID = fmt.Sprintf("pr-%d", pr.Number)
		v.Label = pr.Source().Label()
		v.URL = pr.HTMLURL
		v.Link = PRPage(pr.Number)
		v.Warnings = warningStrings(applied.Warnings)
		d.Views = append(d.Views, v)
	}

	return b.render(dest, "file.html", d)
}

// view converts an annotated file into highlighted rows. Base rows reuse the
// base highlighting; added rows are highlighted together in display order.
func (b *Builder) view(repoPath string, af *model.AnnotatedFile, baseHL []diff.HighlightedLine) viewData {
	var addedTexts []string
	for _, r := range af.Rows {
		if r.Kind == model.RowAdded {
			addedTexts = append(addedTexts, r.Text)
		}
	}
	addedHL := diff.HighlightLines(repoPath, b.Style, addedTexts)

	v := viewData{Rows: make([]rowData, 0, len(af.Rows))}
	k := 0
	for _, r := range af.Rows {
		row := rowData{Number: r.Number}
		if r.Kind == model.RowAdded {
			row.Added = true
			row.Source = r.Source.Label()
			row.Tokens = addedHL[k].Tokens
			k++
		} else if r.Number >= 1 && r.Number <= len(baseHL) {
			row.Tokens = baseHL[r.Number-1].Tokens
		} else {
			row.Tokens = []diff.Token{{Text: r.Text}}
		}
		v.Rows = append(v.Rows, row)
	}
	baseRows, added, sources := af.Stats()
	v.Stats = fmt.Sprintf("%d base lines, %d added from %d PR(s)", baseRows, added, sources)
	return v
}

func warningStrings(ws []model.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

// Pull request pages

type prFileData struct {
	Name     string
	Status   string
	Link     string
	Diff     string
	HasPatch bool
	Added    int
	Deleted  int
}

type prData struct {
	pageMeta
	Number    int
	Title     string
	Author    string
	Body      string
	URL       string
	State     string
	Created   string
	Labels    []string
	Files     []prFileData
	Added     int
	Deleted   int
	Warnings  []string
	Truncated bool
}

func (b *Builder) writePRPage(pr *snapshot.PR) error {
	page := PRPage(pr.Number)
	dest, err := b.pagePath(page)
	if err != nil {
		return err
	}

	d := prData{
		pageMeta:  b.meta(page),
		Number:    pr.Number,
		Title:     pr.Title,
		Author:    pr.Author,
		Body:      pr.Body,
		URL:       pr.HTMLURL,
		State:     pr.State,
		Labels:    pr.Labels,
		Warnings:  warningStrings(pr.Warnings()),
		Truncated: pr.Files.Truncated,
	}
	if !pr.CreatedAt.IsZero() {
		d.Created = pr.CreatedAt.Format("2006-01-02 15:04 MST")
	}
	if strings.TrimSpace(d.Body) == "" {
		d.Body = "No description provided."
	}

	for _, f := range pr.Files.Files {
		fd := prFileData{
			Name:     f.Filename,
			Status:   f.Status,
			Link:     FilePage(f.Filename),
			HasPatch: f.HasPatch,
			Added:    f.Additions,
			Deleted:  f.Deletions,
		}
		if f.HasPatch {
			fd.Diff = FileDiff(f)
			if ds, err := diff.Parse(fd.Diff); err == nil {
				_, fd.Added, fd.Deleted = ds.Stats()
			} else {
				logger.WithField("pr", pr.Number).WithField("file", f.Filename).WithError(err).Debug("Falling back to API line counts")
			}
		}
		d.Added += fd.Added
		d.Deleted += fd.Deleted
		d.Files = append(d.Files, fd)
	}

	return b.render(dest, "pr.html", d)
}

// FileDiff wraps a pull request file's patch in git diff headers so it can be
// parsed as a full diff and fed to diff2html.
func FileDiff(f github.PRFile) string {
	var sb strings.Builder
	oldName, newName := "a/"+f.Filename, "b/"+f.Filename
	if f.Status == "added" {
		oldName = "/dev/null"
	}
	if f.Status == "removed" {
		newName = "/dev/null"
	}
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", f.Filename, f.Filename)
	if f.Status == "added" {
		sb.WriteString("new file mode 100644\n")
	}
	if f.Status == "removed" {
		sb.WriteString("deleted file mode 100644\n")
	}
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", oldName, newName)
	sb.WriteString(f.Patch)
	if !strings.HasSuffix(f.Patch, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}
