// Package github fetches repository contents and pull requests through the
// GitHub REST API, reading and writing every payload through a cache.Store.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/aezell/prview/internal/cache"
)

var logger = log.WithField("package", "github")

// LowRateLimit is the remaining-request count below which a warning is logged.
const LowRateLimit = 20

// API is the read-only view of a repository the site builder and TUI need.
type API interface {
	// Contents lists one directory; "" is the repository root.
	Contents(ctx context.Context, dir string) ([]Entry, error)
	// Blob returns the decoded content of a git blob.
	Blob(ctx context.Context, sha string) ([]byte, error)
	// PullRequests lists every pull request in the given state.
	PullRequests(ctx context.Context, state string) ([]PullRequest, error)
	// PullRequestFiles lists the first page of a pull request's changed files.
	PullRequestFiles(ctx context.Context, number int) (FileList, error)
}

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	PerPage int
	Timeout time.Duration
}

// Client handles GitHub API interactions for one repository.
type Client struct {
	client  *gh.Client
	store   cache.Store
	owner   string
	repo    string
	perPage int
	timeout time.Duration

	mu   sync.Mutex
	rate int
}

// Ensure Client implements API
var _ API = (*Client)(nil)

// NewClient creates a client for owner/repo backed by store.
func NewClient(owner, repo string, store cache.Store, opts Options) (*Client, error) {
	httpClient := http.DefaultClient
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := gh.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing api base url: %w", err)
		}
		client.BaseURL = u
	}

	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:  client,
		store:   store,
		owner:   owner,
		repo:    repo,
		perPage: perPage,
		timeout: timeout,
		rate:    -1,
	}, nil
}

// Owner returns the repository owner.
func (c *Client) Owner() string { return c.owner }

// Repo returns the repository name.
func (c *Client) Repo() string { return c.repo }

// RateRemaining returns the last seen X-RateLimit-Remaining value, or -1.
func (c *Client) RateRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Client) trackRate(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	c.mu.Lock()
	c.rate = resp.Rate.Remaining
	c.mu.Unlock()
	if resp.Rate.Remaining < LowRateLimit {
		logger.WithField("remaining", resp.Rate.Remaining).Warn("Low API rate limit remaining")
	}
}

func (c *Client) key(kind cache.Kind, id string) cache.Key {
	return cache.Key{Owner: c.owner, Repo: c.repo, Kind: kind, ID: id}
}

// cached decodes a JSON cache entry into v and reports whether it was found.
func (c *Client) cached(key cache.Key, v any) bool {
	data, err := c.store.Read(key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.WithField("key", key.String()).WithError(err).Warn("Ignoring unreadable cache entry")
		return false
	}
	return true
}

func (c *Client) save(key cache.Key, data []byte) {
	if err := c.store.Write(key, data); err != nil {
		logger.WithError(err).Warn("Could not save cache entry")
	}
}

func (c *Client) saveJSON(key cache.Key, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Warn("Could not encode cache entry")
		return
	}
	c.save(key, data)
}

// Contents lists one directory of the repository's default branch.
func (c *Client) Contents(ctx context.Context, dir string) ([]Entry, error) {
	key := c.key(cache.DirContents, dir)
	var raw []*gh.RepositoryContent
	if !c.cached(key, &raw) {
		logger.WithField("dir", dir).Info("Fetching repo contents")
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		_, listing, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, dir, nil)
		c.trackRate(resp)
		if err != nil {
			return nil, fmt.Errorf("fetching contents of %q: %w", dir, err)
		}
		if listing == nil {
			return nil, fmt.Errorf("fetching contents of %q: not a directory", dir)
		}
		raw = listing
		c.saveJSON(key, raw)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, entryFromContent(item))
	}
	return entries, nil
}

// Blob returns the decoded bytes of the blob with the given SHA.
func (c *Client) Blob(ctx context.Context, sha string) ([]byte, error) {
	key := c.key(cache.FileBlobs, sha)
	if data, err := c.store.Read(key); err == nil {
		return data, nil
	}

	logger.WithField("sha", sha).Debug("Fetching file blob")
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	blob, resp, err := c.client.Git.GetBlob(ctx, c.owner, c.repo, sha)
	c.trackRate(resp)
	if err != nil {
		return nil, fmt.Errorf("fetching blob %s: %w", sha, err)
	}
	if blob.GetEncoding() != "base64" || blob.Content == nil {
		return nil, fmt.Errorf("blob %s: unsupported encoding %q", sha, blob.GetEncoding())
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decoding blob %s: %w", sha, err)
	}
	c.save(key, data)
	return data, nil
}

// PullRequests lists every pull request in state, following pagination.
func (c *Client) PullRequests(ctx context.Context, state string) ([]PullRequest, error) {
	key := c.key(cache.PullsMeta, state)
	var raw []*gh.PullRequest
	if !c.cached(key, &raw) {
		logger.WithField("state", state).Info("Fetching PR list")
		opts := &gh.PullRequestListOptions{
			State:       state,
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: 100},
		}
		for {
			page, err := c.listPulls(ctx, opts)
			if err != nil {
				return nil, err
			}
			raw = append(raw, page.items...)
			if page.next == 0 {
				break
			}
			opts.Page = page.next
		}
		logger.WithField("count", len(raw)).Info("Fetched pull requests")
		c.saveJSON(key, raw)
	}

	prs := make([]PullRequest, 0, len(raw))
	for _, p := range raw {
		prs = append(prs, pullRequestFromAPI(p))
	}
	return prs, nil
}

type pullsPage struct {
	items []*gh.PullRequest
	next  int
}

func (c *Client) listPulls(ctx context.Context, opts *gh.PullRequestListOptions) (pullsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
	c.trackRate(resp)
	if err != nil {
		return pullsPage{}, fmt.Errorf("listing pull requests (page %d): %w", max(opts.Page, 1), err)
	}
	return pullsPage{items: items, next: resp.NextPage}, nil
}

// PullRequestFiles lists the first page of changed files of a pull request.
// A full first page is reported as truncated, whether it came from the
// network or the cache.
func (c *Client) PullRequestFiles(ctx context.Context, number int) (FileList, error) {
	key := c.key(cache.PullFilesDetail, fmt.Sprint(number))
	var (
		raw       []*gh.CommitFile
		truncated bool
	)
	if c.cached(key, &raw) {
		truncated = len(raw) >= c.perPage
	} else {
		logger.WithField("pr", number).Debug("Fetching PR files (first page)")
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		files, resp, err := c.client.PullRequests.ListFiles(ctx, c.owner, c.repo, number,
			&gh.ListOptions{PerPage: c.perPage})
		c.trackRate(resp)
		if err != nil {
			return FileList{}, fmt.Errorf("listing files of PR #%d: %w", number, err)
		}
		raw = files
		truncated = resp.NextPage != 0 || len(raw) >= c.perPage
		c.saveJSON(key, raw)
	}

	list := FileList{Truncated: truncated}
	for _, f := range raw {
		list.Files = append(list.Files, prFileFromAPI(f))
	}
	if truncated {
		logger.WithFields(log.Fields{"pr": number, "files": len(list.Files)}).
			Warn("PR file list truncated to the first page")
	}
	return list, nil
}

// WalkFunc is called for every entry Walk visits.
type WalkFunc func(Entry) error

// Walk visits every entry of the repository depth-first, directories before
// their contents. A directory that cannot be listed is logged and skipped;
// only a failure at the root is returned.
func Walk(ctx context.Context, api API, fn WalkFunc) error {
	root, err := api.Contents(ctx, "")
	if err != nil {
		return err
	}
	return walkEntries(ctx, api, root, fn)
}

func walkEntries(ctx context.Context, api API, entries []Entry, fn WalkFunc) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		children, err := api.Contents(ctx, e.Path)
		if err != nil {
			logger.WithField("dir", e.Path).WithError(err).Warn("Skipping directory")
			continue
		}
		if err := walkEntries(ctx, api, children, fn); err != nil {
			return err
		}
	}
	return nil
}
