// Package snapshot gathers a repository's files and pull requests into one
// in-memory view that the site builder, the TUI and the check command share.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/model"
)

var logger = log.WithField("package", "snapshot")

// File is one repository file and its classified content.
type File struct {
	Entry   github.Entry
	Content model.FileContent
}

// PR is a pull request with its changed files.
type PR struct {
	github.PullRequest
	Files github.FileList
	Err   error // set when the file list could not be fetched
}

// Warnings returns the PR-level problems: a failed or truncated file list.
func (p *PR) Warnings() []model.Warning {
	var out []model.Warning
	if p.Err != nil {
		out = append(out, model.Warning{
			Kind:    model.WarnFetchFailed,
			Source:  p.Source(),
			Hunk:    -1,
			Message: p.Err.Error(),
		})
	}
	if p.Files.Truncated {
		out = append(out, model.Warning{
			Kind:    model.WarnTruncated,
			Source:  p.Source(),
			Hunk:    -1,
			Message: fmt.Sprintf("only the first %d changed files were fetched", len(p.Files.Files)),
		})
	}
	return out
}

// Options controls what Collect fetches.
type Options struct {
	State       string
	MaxFileSize int64
}

// Snapshot is everything prview knows about one repository.
type Snapshot struct {
	Owner   string
	Repo    string
	Entries []github.Entry // walk order, directories included
	Files   []*File
	PRs     []*PR // ascending by number

	byPath map[string]*File
}

// Collect walks the repository, fetches file contents and the pull requests
// in opts.State. Failures for a single file or pull request are logged and
// recorded; only a failure to list the repository root is returned.
func Collect(ctx context.Context, api github.API, owner, repo string, opts Options) (*Snapshot, error) {
	s := New(owner, repo)

	err := github.Walk(ctx, api, func(e github.Entry) error {
		s.Entries = append(s.Entries, e)
		if e.IsDir() {
			return nil
		}
		s.AddFile(e, fetchContent(ctx, api, e, opts.MaxFileSize))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s/%s: %w", owner, repo, err)
	}

	prs, err := api.PullRequests(ctx, opts.State)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.WithError(err).Warn("Could not list pull requests; continuing without them")
	}
	for _, pr := range prs {
		p := &PR{PullRequest: pr}
		p.Files, p.Err = api.PullRequestFiles(ctx, pr.Number)
		if p.Err != nil {
			logger.WithField("pr", pr.Number).WithError(p.Err).Warn("Could not list PR files")
		}
		s.AddPR(p)
	}

	logger.WithFields(log.Fields{"files": len(s.Files), "prs": len(s.PRs)}).Info("Collected repository snapshot")
	return s, nil
}

func fetchContent(ctx context.Context, api github.API, e github.Entry, maxSize int64) model.FileContent {
	if maxSize > 0 && e.Size > maxSize {
		return github.Classify(e, nil, maxSize)
	}
	data, err := api.Blob(ctx, e.SHA)
	if err != nil {
		logger.WithField("path", e.Path).WithError(err).Warn("Could not fetch file content")
		data = nil
	}
	return github.Classify(e, data, maxSize)
}

// New returns an empty snapshot.
func New(owner, repo string) *Snapshot {
	return &Snapshot{Owner: owner, Repo: repo, byPath: make(map[string]*File)}
}

// AddFile records a repository file.
func (s *Snapshot) AddFile(e github.Entry, content model.FileContent) {
	f := &File{Entry: e, Content: content}
	s.Files = append(s.Files, f)
	s.byPath[e.Path] = f
}

// AddPR records a pull request, keeping PRs ordered by number.
func (s *Snapshot) AddPR(p *PR) {
	i := sort.Search(len(s.PRs), func(i int) bool { return s.PRs[i].Number >= p.Number })
	s.PRs = append(s.PRs, nil)
	copy(s.PRs[i+1:], s.PRs[i:])
	s.PRs[i] = p
}

// File returns the repository file at path.
func (s *Snapshot) File(path string) (*File, bool) {
	f, ok := s.byPath[path]
	return f, ok
}

// PR returns the pull request with the given number.
func (s *Snapshot) PR(number int) (*PR, bool) {
	i := sort.Search(len(s.PRs), func(i int) bool { return s.PRs[i].Number >= number })
	if i < len(s.PRs) && s.PRs[i].Number == number {
		return s.PRs[i], true
	}
	return nil, false
}

// Touching returns the pull requests with a patch for path.
func (s *Snapshot) Touching(path string) []*PR {
	var out []*PR
	for _, p := range s.PRs {
		if f, ok := p.Files.Lookup(path); ok && f.HasPatch {
			out = append(out, p)
		}
	}
	return out
}

// RawPatches returns the patch text every pull request has for path.
func (s *Snapshot) RawPatches(path string) []diff.RawPatch {
	var out []diff.RawPatch
	for _, p := range s.Touching(path) {
		f, _ := p.Files.Lookup(path)
		out = append(out, diff.RawPatch{Source: p.Source(), Text: f.Patch})
	}
	return out
}

// Contributions parses every patch for path. Patches that do not parse are
// reported as warnings and left out.
func (s *Snapshot) Contributions(path string) ([]diff.Contribution, []model.Warning) {
	return diff.ParsePatches(s.RawPatches(path))
}

// Blob returns the base text of path. Paths that only exist in pull requests
// get an empty base; binary, oversized and missing files have none.
func (s *Snapshot) Blob(path string) (*model.Blob, bool) {
	f, ok := s.File(path)
	if !ok {
		return model.NewBlob(path, nil), true
	}
	if f.Content.Kind != model.ContentText {
		return nil, false
	}
	return f.Content.Blob, true
}

// Overlay interleaves every pull request's additions to path.
func (s *Snapshot) Overlay(path string) (*model.AnnotatedFile, bool) {
	blob, ok := s.Blob(path)
	if !ok {
		return nil, false
	}
	return diff.InterleavePatches(blob, s.RawPatches(path)), true
}

// Applied renders path with a single pull request's patch applied.
func (s *Snapshot) Applied(path string, number int) (*model.AnnotatedFile, bool) {
	blob, ok := s.Blob(path)
	if !ok {
		return nil, false
	}
	for _, rp := range s.RawPatches(path) {
		if rp.Source.ID == number {
			return diff.ApplyPatch(blob, rp), true
		}
	}
	return nil, false
}

// ChangedPaths returns every path some pull request patches, sorted.
func (s *Snapshot) ChangedPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, p := range s.PRs {
		for _, f := range p.Files.Files {
			if f.HasPatch && !seen[f.Filename] {
				seen[f.Filename] = true
				paths = append(paths, f.Filename)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// Subject builds the analysis subject for one path.
func (s *Snapshot) Subject(path string) *analysis.Subject {
	contribs, warnings := s.Contributions(path)
	blob, ok := s.Blob(path)
	if !ok {
		f, _ := s.File(path)
		if f.Content.Kind == model.ContentMissing {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnFetchFailed,
				Hunk:    -1,
				Message: f.Content.Placeholder(),
			})
		}
		return analysis.NewSubject(path, nil, contribs, warnings...)
	}
	return analysis.NewSubject(path, blob, contribs, warnings...)
}

// Subjects builds analysis subjects for every changed path.
func (s *Snapshot) Subjects() []*analysis.Subject {
	var out []*analysis.Subject
	for _, path := range s.ChangedPaths() {
		out = append(out, s.Subject(path))
	}
	return out
}

// Analyze runs the analysis passes over every changed path.
func (s *Snapshot) Analyze(skip []string) *analysis.Results {
	return analysis.Run(s.Subjects(), skip)
}
