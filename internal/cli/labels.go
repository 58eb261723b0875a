package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/config"
	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/report"
)

var labelsCmd = &cobra.Command{
	Use:   "labels [owner/repo]",
	Short: "Group pull requests by label with the lines each one adds",
	Long: `Write one JSON file per label to
<output-dir>/<owner>/<repo>/_cache/consolidated_json/<label>.json.

Each entry lists a pull request and, per changed file, the lines it adds.
Pull requests without labels are grouped under no_label. Cached pull request
data is used when present; no token is needed if everything is cached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLabels,
}

func runLabels(cmd *cobra.Command, args []string) error {
	owner, repo, err := repoArg(args, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); errors.Is(err, config.ErrNoToken) {
		logger.Warn("No GitHub token; only cached data can be used")
	}

	client, store, err := newClient(owner, repo)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	prs, err := client.PullRequests(ctx, cfg.State)
	if err != nil {
		return fmt.Errorf("listing pull requests: %w", err)
	}

	files := make(map[int]github.FileList, len(prs))
	for _, pr := range prs {
		list, err := client.PullRequestFiles(ctx, pr.Number)
		if err != nil {
			logger.WithField("pr", pr.Number).WithError(err).Warn("Could not list PR files; skipping")
			continue
		}
		files[pr.Number] = list
	}

	labels, err := report.WriteLabels(store, owner, repo, report.Consolidate(prs, files))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d label(s) written to %s\n", len(labels), store.CacheDir(owner, repo))
	for _, l := range labels {
		fmt.Fprintf(out, "  %s\n", l)
	}
	return nil
}
