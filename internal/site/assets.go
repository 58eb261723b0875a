package site

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aezell/prview/internal/cache"
)

// Asset is a static file the generated pages load from html/assets.
type Asset struct {
	Name string
	URL  string
}

// DefaultAssets are the diff2html bundles used by the pull request pages.
var DefaultAssets = []Asset{
	{Name: "diff2html-ui.min.js", URL: "https://cdn.jsdelivr.net/npm/diff2html/bundles/js/diff2html-ui.min.js"},
	{Name: "diff2html.min.css", URL: "https://cdn.jsdelivr.net/npm/diff2html/bundles/css/diff2html.min.css"},
}

// Fetcher downloads a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// ensureAssets copies every asset into dir, downloading the ones missing from
// the cache. A failed asset is logged and skipped.
func (b *Builder) ensureAssets(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating assets dir: %w", err)
	}
	for _, a := range b.Assets {
		data, err := b.asset(ctx, a)
		if err != nil {
			logger.WithField("asset", a.Name).WithError(err).Warn("Could not fetch asset; pages will render without it")
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, a.Name), data, 0o644); err != nil {
			return fmt.Errorf("writing asset %s: %w", a.Name, err)
		}
	}
	return nil
}

func (b *Builder) asset(ctx context.Context, a Asset) ([]byte, error) {
	key := cache.Key{Owner: b.Snapshot.Owner, Repo: b.Snapshot.Repo, Kind: cache.Assets, ID: a.Name}
	if b.Store != nil {
		if data, err := b.Store.Read(key); err == nil {
			return data, nil
		}
	}
	if b.Fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	logger.WithField("url", a.URL).Info("Downloading asset")
	data, err := b.Fetcher.Fetch(ctx, a.URL)
	if err != nil {
		return nil, err
	}
	if b.Store != nil {
		if err := b.Store.Write(key, data); err != nil {
			logger.WithField("asset", a.Name).WithError(err).Warn("Could not cache asset")
		}
	}
	return data, nil
}
