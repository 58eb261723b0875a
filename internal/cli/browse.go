package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/snapshot"
	"github.com/aezell/prview/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [owner/repo]",
	Short: "Browse a repository and its pull requests in the terminal",
	Long: `Open an interactive TUI over the repository snapshot. Data comes from
the cache when present and from the GitHub API otherwise.

Keys:
  n / N      next / previous file
  v / V      cycle base, interleaved and per pull request views
  ] / [      jump to next / previous added block
  c          only show files changed by a pull request
  ?          help`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringSlice("skip", nil, "analysis passes to skip")
	browseCmd.Flags().Bool("stat", false, "print the changed files and exit (non-interactive)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	snap, _, _, err := collect(cmd, args)
	if err != nil {
		return err
	}

	skip, _ := cmd.Flags().GetStringSlice("skip")
	results := snap.Analyze(skip)

	if stat, _ := cmd.Flags().GetBool("stat"); stat {
		printSnapshotStat(cmd.OutOrStdout(), snap, results)
		return nil
	}
	if len(results.Findings) > 0 {
		fmt.Fprintf(os.Stderr, "Analysis: %s\n", results.Summary())
	}

	return tui.Run(snap, results, cfg.Style)
}

func printSnapshotStat(w io.Writer, snap *snapshot.Snapshot, results *analysis.Results) {
	paths := snap.ChangedPaths()
	fmt.Fprintf(w, "%d file(s) changed by %d pull request(s)\n\n", len(paths), len(snap.PRs))
	for _, p := range paths {
		fmt.Fprintf(w, "  %-50s %d PR(s)\n", p, len(snap.Touching(p)))
	}

	byPR := results.ByPR()
	fmt.Fprintln(w)
	for _, pr := range snap.PRs {
		fmt.Fprintf(w, "  #%-6d %-50s %d file(s), %d finding(s)\n",
			pr.Number, truncateTitle(pr.Title, 50), len(pr.Files.Files), len(byPR[pr.Number]))
	}
}

func truncateTitle(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
