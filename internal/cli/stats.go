package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats FILE",
	Short: "Count pull requests per creation date",
	Long: `Read a cached pull request list (a pulls_meta JSON file) and print how
many pull requests were opened on each day, followed by every pull request
and its creation day sorted by number. Days use the configured timezone.

Example:
  prview stats gh_local_viewer_output/psf/requests/_cache/pulls_meta/b3Blbg==.json   (state "open")`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	stats, err := report.LoadStats(data, loc)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), stats, loc.String())
	return nil
}

func printStats(w io.Writer, s report.Stats, zone string) {
	if len(s.PRs) == 0 {
		fmt.Fprintln(w, "No pull requests.")
		return
	}

	dates := make([][]string, 0, len(s.Dates))
	for _, d := range s.Dates {
		dates = append(dates, []string{d.Date, strconv.Itoa(d.Count)})
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Pull requests per day (%s)", zone)))
	fmt.Fprintln(w, statsTable([]string{"DATE", "COUNT"}, dates))

	prs := make([][]string, 0, len(s.PRs))
	for _, p := range s.PRs {
		prs = append(prs, []string{"#" + strconv.Itoa(p.Number), p.Date})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Pull requests"))
	fmt.Fprintln(w, statsTable([]string{"PR", "CREATED"}, prs))
}

func statsTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(gutterStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 1 {
				return s.Align(lipgloss.Right)
			}
			return s
		}).
		String()
}
