package cli

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/model"
	"github.com/aezell/prview/internal/snapshot"
)

var checkCmd = &cobra.Command{
	Use:   "check [owner/repo]",
	Short: "Report pull requests that collide with each other (non-interactive)",
	Long: `Overlay every open pull request onto the files it changes and run the
analysis passes over the result. Useful for CI and triage scripts.

Exit codes:
  0  clean, or informational findings only
  1  low or medium risk findings
  2  high risk findings, such as two pull requests editing the same lines`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("format", "f", "text", "output format: text, json, markdown, html")
	checkCmd.Flags().StringSlice("skip", nil, "analysis passes to skip")
	checkCmd.Flags().String("min-risk", "info", "only report findings at or above: info, low, medium, high, critical")
}

// checkReport is what every output format renders.
type checkReport struct {
	Repo    string
	Files   int // repository files
	Changed int // files touched by at least one pull request
	PRs     int
	Results *analysis.Results
}

func newCheckReport(snap *snapshot.Snapshot, results *analysis.Results) checkReport {
	return checkReport{
		Repo:    snap.Owner + "/" + snap.Repo,
		Files:   len(snap.Files),
		Changed: len(snap.ChangedPaths()),
		PRs:     len(snap.PRs),
		Results: results,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	render, ok := checkFormats[format]
	if !ok {
		return fmt.Errorf("unknown format %q: want text, json, markdown or html", format)
	}

	minRiskFlag, _ := cmd.Flags().GetString("min-risk")
	minRisk, err := model.ParseRisk(minRiskFlag)
	if err != nil {
		return err
	}

	snap, _, _, err := collect(cmd, args)
	if err != nil {
		return err
	}

	skip, _ := cmd.Flags().GetStringSlice("skip")
	results := snap.Analyze(skip)
	if minRisk > model.RiskInfo {
		results = &analysis.Results{Findings: results.ByRisk(minRisk)}
	}

	report := newCheckReport(snap, results)
	if err := render(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return riskExit(report.Results.MaxRisk())
}

var checkFormats = map[string]func(io.Writer, checkReport) error{
	"text":     outputText,
	"json":     outputJSON,
	"markdown": outputMarkdown,
	"html":     outputHTML,
}

// riskExit returns an exitError for findings at or above RiskLow.
func riskExit(maxRisk model.RiskLevel) error {
	switch {
	case maxRisk >= model.RiskHigh:
		return &exitError{code: 2, msg: fmt.Sprintf("maximum risk %s", maxRisk)}
	case maxRisk >= model.RiskLow:
		return &exitError{code: 1, msg: fmt.Sprintf("maximum risk %s", maxRisk)}
	default:
		return nil
	}
}

func outputText(w io.Writer, r checkReport) error {
	fmt.Fprintf(w, "%s: %d file(s), %d changed by %d pull request(s)\n", r.Repo, r.Files, r.Changed, r.PRs)
	fmt.Fprintf(w, "Analysis: %s\n\n", r.Results.Summary())

	if len(r.Results.Findings) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}

	byFile := r.Results.ByFile()
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Fprintf(w, "  %s\n", file)
		for _, f := range byFile[file] {
			loc := ""
			if f.Line > 0 {
				loc = fmt.Sprintf(":%d", f.Line)
			}
			pr := ""
			if f.PR > 0 {
				pr = fmt.Sprintf(" (#%d)", f.PR)
			}
			fmt.Fprintf(w, "    %s [%s] %s%s%s: %s\n", riskIcon(f.Risk), f.Pass, file, loc, pr, f.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

type jsonFinding struct {
	Pass     string `json:"pass"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	PR       int    `json:"pr,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Risk     string `json:"risk"`
}

type jsonReport struct {
	Repo     string        `json:"repo"`
	Files    int           `json:"files"`
	Changed  int           `json:"changed_files"`
	PRs      int           `json:"pull_requests"`
	Summary  string        `json:"summary"`
	MaxRisk  string        `json:"max_risk"`
	Total    int           `json:"total"`
	Findings []jsonFinding `json:"findings"`
}

func outputJSON(w io.Writer, r checkReport) error {
	out := jsonReport{
		Repo:     r.Repo,
		Files:    r.Files,
		Changed:  r.Changed,
		PRs:      r.PRs,
		Summary:  r.Results.Summary(),
		MaxRisk:  r.Results.MaxRisk().String(),
		Total:    len(r.Results.Findings),
		Findings: make([]jsonFinding, 0, len(r.Results.Findings)),
	}
	for _, f := range r.Results.Findings {
		out.Findings = append(out.Findings, jsonFinding{
			Pass:     f.Pass,
			File:     f.File,
			Line:     f.Line,
			PR:       f.PR,
			Message:  f.Message,
			Severity: f.Severity.String(),
			Risk:     f.Risk.String(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputMarkdown(w io.Writer, r checkReport) error {
	fmt.Fprintf(w, "## Overlap Report: %s\n\n", r.Repo)
	fmt.Fprintf(w, "**%d file(s)** changed by **%d** pull request(s)\n\n", r.Changed, r.PRs)
	fmt.Fprintf(w, "**Risk:** %s | **Findings:** %d\n\n", r.Results.MaxRisk(), len(r.Results.Findings))

	if len(r.Results.Findings) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}

	fmt.Fprintln(w, "| Risk | Pass | File | PR | Message |")
	fmt.Fprintln(w, "|------|------|------|----|---------|")
	for _, f := range r.Results.Findings {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		pr := ""
		if f.PR > 0 {
			pr = fmt.Sprintf("#%d", f.PR)
		}
		fmt.Fprintf(w, "| %s | %s | `%s` | %s | %s |\n", f.Risk, f.Pass, loc, pr, f.Message)
	}
	return nil
}

var checkHTML = template.Must(template.New("check").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>prview overlap report: {{.Repo}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 960px; margin: 40px auto; padding: 0 20px; background: #282a36; color: #f8f8f2; }
  h1 { color: #bd93f9; }
  .summary { background: #343746; padding: 16px; border-radius: 8px; margin-bottom: 24px; }
  .summary span { margin-right: 24px; }
  .risk-critical, .risk-high { color: #ff5555; font-weight: bold; }
  .risk-medium { color: #f1fa8c; }
  .risk-low { color: #8be9fd; }
  .risk-info { color: #6272a4; }
  table { width: 100%; border-collapse: collapse; }
  th { text-align: left; padding: 8px 12px; background: #44475a; }
  td { padding: 8px 12px; border-bottom: 1px solid #44475a; }
  .pass { color: #bd93f9; }
  code { background: #343746; padding: 2px 6px; border-radius: 4px; }
  .clean { color: #50fa7b; font-size: 1.2em; }
</style>
</head>
<body>
<h1>{{.Repo}}</h1>
<div class="summary">
  <span><strong>{{.Changed}}</strong> file(s) changed</span>
  <span><strong>{{.PRs}}</strong> pull request(s)</span>
  <span>Risk: <span class="risk-{{.MaxRisk}}">{{.MaxRisk}}</span></span>
  <span>Findings: <strong>{{len .Findings}}</strong></span>
</div>
{{if .Findings}}<table>
<thead><tr><th>Risk</th><th>Pass</th><th>File</th><th>PR</th><th>Message</th></tr></thead>
<tbody>
{{range .Findings}}<tr><td class="risk-{{.Risk}}">{{.Risk}}</td><td class="pass">{{.Pass}}</td><td><code>{{.File}}{{if .Line}}:{{.Line}}{{end}}</code></td><td>{{if .PR}}#{{.PR}}{{end}}</td><td>{{.Message}}</td></tr>
{{end}}</tbody>
</table>{{else}}<p class="clean">No issues found.</p>{{end}}
</body>
</html>
`))

func outputHTML(w io.Writer, r checkReport) error {
	data := struct {
		Repo     string
		Changed  int
		PRs      int
		MaxRisk  string
		Findings []analysis.Finding
	}{r.Repo, r.Changed, r.PRs, r.Results.MaxRisk().String(), r.Results.Findings}

	if err := checkHTML.Execute(w, data); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	return nil
}

func riskIcon(r model.RiskLevel) string {
	switch r {
	case model.RiskCritical:
		return "!!"
	case model.RiskHigh:
		return "! "
	case model.RiskMedium:
		return "* "
	case model.RiskLow:
		return "- "
	default:
		return "  "
	}
}
