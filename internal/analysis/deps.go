package analysis

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/aezell/prview/internal/model"
)

// ecosystem knows how to pull a package name out of one manifest line.
type ecosystem struct {
	name string
	re   *regexp.Regexp
	skip map[string]bool
}

func (e *ecosystem) parse(line string) string {
	m := e.re.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil || e.skip[m[1]] {
		return ""
	}
	return m[1]
}

func keys(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

var (
	goEco = &ecosystem{name: "go",
		re: regexp.MustCompile(`^(?:require\s+)?([\w.-]+\.[\w.-]+/\S+)\s+v\S+`)}
	npmEco = &ecosystem{name: "npm",
		re:   regexp.MustCompile(`^"([^"]+)"\s*:\s*"[^"]*"`),
		skip: keys("name", "version", "description", "main", "license", "author", "homepage", "resolved", "integrity")}
	cargoEco = &ecosystem{name: "cargo",
		re:   regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*["{]`),
		skip: keys("name", "version", "edition", "authors", "description", "license", "readme", "repository", "checksum", "source")}
	pipEco = &ecosystem{name: "pip",
		re: regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*(?:==|>=|<=|!=|~=|>|<|;|$)`)}
	gemEco = &ecosystem{name: "gem",
		re: regexp.MustCompile(`^gem\s+['"]([^'"]+)['"]`)}
	hexEco = &ecosystem{name: "hex",
		re: regexp.MustCompile(`^\{:([a-z0-9_]+)\s*,`)}
)

var manifests = map[string]*ecosystem{
	"go.mod":            goEco,
	"package.json":      npmEco,
	"package-lock.json": npmEco,
	"yarn.lock":         npmEco,
	"pnpm-lock.yaml":    npmEco,
	"Cargo.toml":        cargoEco,
	"Cargo.lock":        cargoEco,
	"requirements.txt":  pipEco,
	"Pipfile":           pipEco,
	"Pipfile.lock":      pipEco,
	"pyproject.toml":    pipEco,
	"poetry.lock":       pipEco,
	"Gemfile":           gemEco,
	"Gemfile.lock":      gemEco,
	"mix.exs":           hexEco,
	"mix.lock":          hexEco,
}

var ecosystems = map[string]*ecosystem{}

func init() {
	for _, e := range manifests {
		ecosystems[e.name] = e
	}
}

type depAdd struct {
	name string
	pr   int
	line int
}

// NewDependencyPass reports dependencies a pull request adds to a manifest
// or lockfile. A dependency added by several pull requests is RiskHigh.
func NewDependencyPass(s *Subject) []Finding {
	eco, ok := manifests[path.Base(s.Path)]
	if !ok {
		return nil
	}

	var adds []depAdd
	prsByDep := make(map[string][]int)
	for _, c := range s.Contributions {
		pr := prNumber(c.Source)
		for _, l := range s.addedLines(c) {
			dep := eco.parse(l.Text)
			if dep == "" {
				continue
			}
			adds = append(adds, depAdd{name: dep, pr: pr, line: l.base})
			if prs := prsByDep[dep]; len(prs) == 0 || prs[len(prs)-1] != pr {
				prsByDep[dep] = append(prs, pr)
			}
		}
	}

	findings := make([]Finding, 0, len(adds))
	for _, a := range adds {
		f := Finding{
			Pass:     "deps",
			File:     s.Path,
			Line:     a.line,
			PR:       a.pr,
			Message:  fmt.Sprintf("New %s dependency: %s", eco.name, a.name),
			Severity: model.SeverityWarning,
			Risk:     model.RiskMedium,
		}
		var others []string
		for _, pr := range prsByDep[a.name] {
			if pr != a.pr {
				others = append(others, fmt.Sprintf("#%d", pr))
			}
		}
		if len(others) > 0 {
			f.Risk = model.RiskHigh
			f.Message += " (also added by " + strings.Join(others, ", ") + ")"
		}
		findings = append(findings, f)
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

// parseDepLine returns the package named on line for the named ecosystem,
// or "" when the line names none.
func parseDepLine(line, eco string) string {
	e, ok := ecosystems[eco]
	if !ok {
		return ""
	}
	return e.parse(line)
}
