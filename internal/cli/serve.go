package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/api"
	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/site"
)

var serveCmd = &cobra.Command{
	Use:   "serve [owner/repo]",
	Short: "Serve the generated site and the overlay JSON API",
	Long: `Start an HTTP server exposing the overlay engine and, when a built site
exists, the static pages for owner/repo.

Endpoints:
  GET  /                  Generated site (with owner/repo or --site)
  GET  /health            Health check
  POST /api/parse         Parse a patch or a full git diff
  POST /api/apply         Apply one patch to a base file
  POST /api/interleave    Interleave several patches onto a base file
  POST /api/analyze       Run the analysis passes on an interleave request
  GET  /api/ws            WebSocket for live overlay sessions`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6142, "port to listen on")
	serveCmd.Flags().String("site", "", "directory with a built site to serve at /")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")

	siteDir, _ := cmd.Flags().GetString("site")
	if siteDir == "" && len(args) == 1 {
		owner, repo, err := github.ParseOwnerRepo(args[0])
		if err != nil {
			return err
		}
		siteDir = filepath.Join(cfg.OutputDir, owner, repo, site.HTMLDir)
	}

	var opts []api.Option
	if siteDir != "" {
		if info, err := os.Stat(siteDir); err != nil || !info.IsDir() {
			return fmt.Errorf("site directory %s not found; run prview build first", siteDir)
		}
		opts = append(opts, api.WithSite(siteDir))
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", listen)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.New(listen, opts...).Serve(ctx)
}
