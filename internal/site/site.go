// Package site renders a repository snapshot as a static HTML site.
package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/cache"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
	"github.com/aezell/prview/internal/snapshot"
)

var logger = log.WithField("package", "site")

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"risk": func(r model.RiskLevel) string { return "risk-" + r.String() },
}).ParseFS(templateFS, "templates/*.html"))

// Layout of the generated site under the output directory.
const (
	HTMLDir   = "html"
	FilesDir  = "files"
	PullsDir  = "pulls"
	AssetsDir = "assets"
)

// Builder writes the site for one snapshot.
type Builder struct {
	Snapshot *snapshot.Snapshot
	Results  *analysis.Results // findings shown on file pages, may be nil
	OutDir   string
	Style    string // chroma style for the base view
	Store    cache.Store
	Fetcher  Fetcher
	Assets   []Asset
}

// NewBuilder returns a builder with the default assets.
func NewBuilder(snap *snapshot.Snapshot, outDir string, store cache.Store, fetcher Fetcher) *Builder {
	return &Builder{
		Snapshot: snap,
		OutDir:   outDir,
		Style:    diff.DefaultStyle,
		Store:    store,
		Fetcher:  fetcher,
		Assets:   DefaultAssets,
	}
}

// HTMLRoot returns the directory holding index.html.
func (b *Builder) HTMLRoot() string {
	return filepath.Join(b.OutDir, HTMLDir)
}

// Build writes the index, one page per file and one page per pull request.
func (b *Builder) Build(ctx context.Context) error {
	root := b.HTMLRoot()
	if err := b.ensureAssets(ctx, filepath.Join(root, AssetsDir)); err != nil {
		return err
	}

	if b.Results == nil {
		b.Results = b.Snapshot.Analyze(nil)
	}
	findings := b.Results.ByFile()

	written := make(map[string]bool)
	for _, f := range b.Snapshot.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.writeFilePage(f.Entry.Path, f.Content, findings[f.Entry.Path]); err != nil {
			return err
		}
		written[f.Entry.Path] = true
	}
	// Files that only exist in pull requests get a page with an empty base.
	for _, p := range b.Snapshot.ChangedPaths() {
		if written[p] {
			continue
		}
		content := model.FileContent{Kind: model.ContentText, Path: p, Blob: model.NewBlob(p, nil)}
		if err := b.writeFilePage(p, content, findings[p]); err != nil {
			return err
		}
	}

	for _, pr := range b.Snapshot.PRs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.writePRPage(pr); err != nil {
			return err
		}
	}

	if err := b.render(filepath.Join(root, "index.html"), "index.html", b.indexData()); err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"files": len(b.Snapshot.Files),
		"prs":   len(b.Snapshot.PRs),
		"dir":   root,
	}).Info("Site generated")
	return nil
}

func (b *Builder) render(dest, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// FilePage returns the site-relative location of a file's page.
func FilePage(repoPath string) string {
	return path.Join(FilesDir, repoPath+".html")
}

// PRPage returns the site-relative location of a pull request's page.
func PRPage(number int) string {
	return path.Join(PullsDir, fmt.Sprintf("%d.html", number))
}

// rootPrefix returns the relative path from a page back to the site root.
func rootPrefix(page string) string {
	depth := strings.Count(page, "/")
	if depth == 0 {
		return ""
	}
	return strings.Repeat("../", depth)
}

func (b *Builder) pagePath(page string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(page)) {
		return "", fmt.Errorf("refusing to write outside the site: %q", page)
	}
	return filepath.Join(b.HTMLRoot(), filepath.FromSlash(page)), nil
}

type pageMeta struct {
	Owner string
	Repo  string
	Root  string
}

func (b *Builder) meta(page string) pageMeta {
	return pageMeta{Owner: b.Snapshot.Owner, Repo: b.Snapshot.Repo, Root: rootPrefix(page)}
}

// Index

type indexEntry struct {
	Name  string
	Path  string
	IsDir bool
	Link  string
}

type prLink struct {
	Number int
	Title  string
	Author string
	URL    string
	Link   string
}

type indexData struct {
	pageMeta
	Entries []indexEntry
	PRs     []prLink
	Summary string
}

func (b *Builder) indexData() indexData {
	d := indexData{pageMeta: b.meta("index.html"), Summary: b.Results.Summary()}
	for _, e := range b.Snapshot.Entries {
		ie := indexEntry{Name: e.Name, Path: e.Path, IsDir: e.IsDir()}
		if !ie.IsDir {
			ie.Link = FilePage(e.Path)
		}
		d.Entries = append(d.Entries, ie)
	}
	sortEntries(d.Entries)
	for _, pr := range b.Snapshot.PRs {
		d.PRs = append(d.PRs, prLink{
			Number: pr.Number,
			Title:  pr.Title,
			Author: pr.Author,
			URL:    pr.HTMLURL,
			Link:   PRPage(pr.Number),
		})
	}
	return d
}

// sortEntries puts directories before files, each group ordered by path
// without regard to case.
func sortEntries(entries []indexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Path) < strings.ToLower(entries[j].Path)
	})
}
