// Package report builds the derived outputs prview writes next to the site:
// per-label pull request bundles and creation-date statistics.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/aezell/prview/internal/cache"
	"github.com/aezell/prview/internal/github"
)

var logger = log.WithField("package", "report")

// NoLabel groups pull requests that carry no label.
const NoLabel = "no_label"

// FileChange is the added text of one changed file.
type FileChange struct {
	Filename   string   `json:"filename"`
	AddedLines []string `json:"added_lines"`
}

// LabelEntry is one pull request inside a label bundle.
type LabelEntry struct {
	PRNumber    int          `json:"pr_number"`
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	FileChanges []FileChange `json:"file_changes"`
}

// SafeLabel turns a label into a file name by replacing every character that
// is not a letter or digit with an underscore.
func SafeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, label)
}

// PatchAdditions returns the lines a patch adds, without the leading '+'.
// Only the line prefix is inspected so that patches the hunk parser rejects
// still contribute their text.
func PatchAdditions(patch string) []string {
	added := []string{}
	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, strings.TrimSuffix(line[1:], "\r"))
		}
	}
	return added
}

// Consolidate groups pull requests by label. Keys are safe label names;
// entries within a group are ordered by pull request number. Pull requests
// without a file listing in files are skipped.
func Consolidate(prs []github.PullRequest, files map[int]github.FileList) map[string][]LabelEntry {
	ordered := make([]github.PullRequest, len(prs))
	copy(ordered, prs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	groups := make(map[string][]LabelEntry)
	for _, pr := range ordered {
		list, ok := files[pr.Number]
		if !ok {
			logger.WithField("pr", pr.Number).Debug("No file listing; skipping")
			continue
		}
		entry := LabelEntry{
			PRNumber:    pr.Number,
			URL:         pr.HTMLURL,
			Title:       pr.Title,
			Body:        pr.Body,
			FileChanges: []FileChange{},
		}
		for _, f := range list.Files {
			entry.FileChanges = append(entry.FileChanges, FileChange{
				Filename:   f.Filename,
				AddedLines: PatchAdditions(f.Patch),
			})
		}

		labels := pr.Labels
		if len(labels) == 0 {
			labels = []string{NoLabel}
		}
		seen := make(map[string]bool)
		for _, l := range labels {
			key := SafeLabel(l)
			if seen[key] {
				continue
			}
			seen[key] = true
			groups[key] = append(groups[key], entry)
		}
	}
	return groups
}

// WriteLabels stores each group under the consolidated cache kind and returns
// the labels written, sorted.
func WriteLabels(store cache.Store, owner, repo string, groups map[string][]LabelEntry) ([]string, error) {
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, l := range labels {
		data, err := json.MarshalIndent(groups[l], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding label %s: %w", l, err)
		}
		key := cache.Key{Owner: owner, Repo: repo, Kind: cache.Consolidated, ID: l}
		if err := store.Write(key, data); err != nil {
			return nil, fmt.Errorf("writing label %s: %w", l, err)
		}
		logger.WithFields(log.Fields{"label": l, "prs": len(groups[l])}).Info("Saved label bundle")
	}
	return labels, nil
}
