// Package cli implements the prview command-line interface.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/cache"
	"github.com/aezell/prview/internal/config"
	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/snapshot"
)

var logger = log.WithField("package", "cli")

// defaultRepo is offered when no repository argument is given.
const defaultRepo = "psf/requests"

// cfg is the configuration resolved for the running command.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "prview",
	Short: "Browse a GitHub repository with its open pull requests overlaid",
	Long: `prview downloads a repository and its pull requests, then shows every
file with the lines each pull request would add interleaved into it.

The result can be written as a static HTML site, browsed in the terminal,
checked for overlapping pull requests, or served over HTTP.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (default prview.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "directory for the cache and generated site")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(overlayCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(buildVersion()))
	return ExitCode(err)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.NewLoader().Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if _, err := log.ParseLevel(level); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		loaded.LogLevel = level
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		loaded.OutputDir = dir
	}

	loaded.ApplyLogLevel()
	cfg = loaded
	return nil
}

// exitError carries a process exit code out of a command without printing
// anything beyond its message.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// repoArg returns owner and repo from args, prompting on in when none is given.
func repoArg(args []string, in io.Reader, out io.Writer) (string, string, error) {
	if len(args) > 0 {
		return github.ParseOwnerRepo(args[0])
	}

	fmt.Fprintf(out, "Repository (owner/repo) [%s]: ", defaultRepo)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("reading repository: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		line = defaultRepo
	}
	return github.ParseOwnerRepo(line)
}

func newClient(owner, repo string) (*github.Client, *cache.DirStore, error) {
	store := cache.NewDirStore(cfg.OutputDir)
	client, err := github.NewClient(owner, repo, store, github.Options{
		Token:   cfg.Token,
		BaseURL: cfg.APIBaseURL,
		PerPage: cfg.PRFilesPerPage,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating github client: %w", err)
	}
	return client, store, nil
}

// collect resolves the repository argument and gathers its snapshot.
func collect(cmd *cobra.Command, args []string) (*snapshot.Snapshot, *github.Client, *cache.DirStore, error) {
	owner, repo, err := repoArg(args, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, nil, nil, err
	}

	client, store, err := newClient(owner, repo)
	if err != nil {
		return nil, nil, nil, err
	}

	snap, err := snapshot.Collect(cmd.Context(), client, owner, repo, snapshot.Options{
		State:       cfg.State,
		MaxFileSize: cfg.MaxFileSize,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if remaining := client.RateRemaining(); remaining >= 0 && remaining < github.LowRateLimit {
		logger.WithField("remaining", remaining).Warn("GitHub rate limit nearly exhausted")
	}
	return snap, client, store, nil
}
