package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build [owner/repo]",
	Short: "Generate the static HTML site for a repository",
	Long: `Download the repository tree, its pull requests and their changed files,
then write a browsable HTML site under <output-dir>/<owner>/<repo>/html.

Every API response is cached under <output-dir>/<owner>/<repo>/_cache, so a
second run only hits the network for what is missing.

Examples:
  prview build psf/requests
  prview build                     # prompts, defaults to psf/requests`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringSlice("skip", nil, "analysis passes to skip")
	buildCmd.Flags().String("style", "", "chroma style for highlighted views (default from config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	snap, _, store, err := collect(cmd, args)
	if err != nil {
		return err
	}

	skip, _ := cmd.Flags().GetStringSlice("skip")
	style, _ := cmd.Flags().GetString("style")
	if style == "" {
		style = cfg.Style
	}

	outDir := filepath.Join(store.Root(), snap.Owner, snap.Repo)
	b := site.NewBuilder(snap, outDir, store, site.NewHTTPFetcher(cfg.Timeout))
	b.Style = style
	b.Results = snap.Analyze(skip)

	if err := b.Build(cmd.Context()); err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d file(s), %d pull request(s): %s\n",
		len(snap.Files), len(snap.PRs), b.Results.Summary())
	fmt.Fprintf(cmd.OutOrStdout(), "Open %s\n", filepath.Join(b.HTMLRoot(), "index.html"))
	return nil
}
