package github

import (
	"encoding/json"
	"fmt"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/aezell/prview/internal/model"
)

// Entry is one item of a repository directory listing.
type Entry struct {
	Name string
	Path string
	Type string // "file" or "dir"
	SHA  string
	Size int64
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == "dir" }

// PullRequest is the subset of pull request metadata prview renders.
type PullRequest struct {
	Number    int
	Title     string
	Body      string
	State     string
	Author    string
	HTMLURL   string
	CreatedAt time.Time
	Labels    []string
}

// Source returns the PatchSource that tags this pull request's additions.
func (pr PullRequest) Source() *model.PatchSource {
	return &model.PatchSource{ID: pr.Number, Title: pr.Title, Author: pr.Author, URL: pr.HTMLURL}
}

// PRFile is one changed file of a pull request.
type PRFile struct {
	Filename         string
	PreviousFilename string
	Status           string
	Additions        int
	Deletions        int
	Patch            string
	HasPatch         bool
}

// FileList is the changed-file listing of a pull request. Only the first
// page is fetched; Truncated is set when GitHub has more.
type FileList struct {
	Files     []PRFile
	Truncated bool
}

// Lookup returns the changed file with the given name.
func (l FileList) Lookup(name string) (PRFile, bool) {
	for _, f := range l.Files {
		if f.Filename == name {
			return f, true
		}
	}
	return PRFile{}, false
}

func entryFromContent(c *gh.RepositoryContent) Entry {
	return Entry{
		Name: c.GetName(),
		Path: c.GetPath(),
		Type: c.GetType(),
		SHA:  c.GetSHA(),
		Size: int64(c.GetSize()),
	}
}

func pullRequestFromAPI(p *gh.PullRequest) PullRequest {
	pr := PullRequest{
		Number:  p.GetNumber(),
		Title:   p.GetTitle(),
		Body:    p.GetBody(),
		State:   p.GetState(),
		Author:  p.GetUser().GetLogin(),
		HTMLURL: p.GetHTMLURL(),
	}
	if p.CreatedAt != nil {
		pr.CreatedAt = p.CreatedAt.Time
	}
	for _, l := range p.Labels {
		pr.Labels = append(pr.Labels, l.GetName())
	}
	return pr
}

func prFileFromAPI(f *gh.CommitFile) PRFile {
	return PRFile{
		Filename:         f.GetFilename(),
		PreviousFilename: f.GetPreviousFilename(),
		Status:           f.GetStatus(),
		Additions:        f.GetAdditions(),
		Deletions:        f.GetDeletions(),
		Patch:            f.GetPatch(),
		HasPatch:         f.Patch != nil,
	}
}

// DecodePullRequests parses a pull request list as returned by the GitHub API
// and stored under pulls_meta in the cache.
func DecodePullRequests(data []byte) ([]PullRequest, error) {
	var raw []*gh.PullRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding pull requests: %w", err)
	}
	prs := make([]PullRequest, 0, len(raw))
	for _, p := range raw {
		prs = append(prs, pullRequestFromAPI(p))
	}
	return prs, nil
}
