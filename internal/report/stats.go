package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/aezell/prview/internal/github"
)

// DateFormat is the layout used to bucket pull requests by day.
const DateFormat = "2006-01-02"

// DateCount is the number of pull requests created on one day.
type DateCount struct {
	Date  string
	Count int
}

// PRDate is a pull request and its local creation day.
type PRDate struct {
	Number int
	Date   string
}

// Stats summarizes pull request creation dates.
type Stats struct {
	Dates []DateCount // ascending by date
	PRs   []PRDate    // ascending by number
}

// ComputeStats buckets prs by creation day in loc. Entries without a number
// or a creation time are skipped.
func ComputeStats(prs []github.PullRequest, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[string]int)
	var s Stats
	for _, pr := range prs {
		if pr.Number == 0 || pr.CreatedAt.IsZero() {
			continue
		}
		day := pr.CreatedAt.In(loc).Format(DateFormat)
		counts[day]++
		s.PRs = append(s.PRs, PRDate{Number: pr.Number, Date: day})
	}

	for day, n := range counts {
		s.Dates = append(s.Dates, DateCount{Date: day, Count: n})
	}
	sort.Slice(s.Dates, func(i, j int) bool { return s.Dates[i].Date < s.Dates[j].Date })
	sort.SliceStable(s.PRs, func(i, j int) bool { return s.PRs[i].Number < s.PRs[j].Number })
	return s
}

// LoadStats decodes a cached pull request list and computes its statistics.
func LoadStats(data []byte, loc *time.Location) (Stats, error) {
	prs, err := github.DecodePullRequests(data)
	if err != nil {
		return Stats{}, fmt.Errorf("loading stats: %w", err)
	}
	return ComputeStats(prs, loc), nil
}
