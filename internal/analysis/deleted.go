package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

// definition matches a function or method definition and captures its name
// in one of the groups. Covers Go, Python, Ruby, Elixir, JS/TS, Rust and the
// Java family.
var definition = regexp.MustCompile(`^\s*(?:` + strings.Join([]string{
	`func\s+(?:\([^)]*\)\s*)?(\w+)\s*[(\[]`,
	`(?:async\s+)?def\s+(\w+)`,
	`defp?\s+(\w+)`,
	`(?:export\s+)?(?:default\s+)?(?:async\s+)?function\*?\s+(\w+)\s*\(`,
	`(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`,
	`(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+(\w+)\s*[(<]`,
	`(?:(?:public|private|protected|static|final|abstract|override|virtual)\s+)+[\w<>\[\],\s]*?(\w+)\s*\(`,
}, "|") + `)`)

func definedName(text string) string {
	m := definition.FindStringSubmatch(text)
	for _, name := range m[min(1, len(m)):] {
		if name != "" {
			return name
		}
	}
	return ""
}

type removedDef struct {
	name string
	line int
}

// DeletedCodePass reports functions a pull request deletes, raising the risk
// when another pull request adds lines that still use the name.
func DeletedCodePass(s *Subject) []Finding {
	added := make([]string, len(s.Contributions))
	for i, c := range s.Contributions {
		var b strings.Builder
		for _, l := range s.addedLines(c) {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
		added[i] = b.String()
	}

	var findings []Finding
	for i, c := range s.Contributions {
		for _, def := range removedDefinitions(s, c) {
			f := Finding{
				Pass:     "deleted",
				File:     s.Path,
				Line:     def.line,
				PR:       prNumber(c.Source),
				Message:  "Deleted function: " + def.name,
				Severity: model.SeverityInfo,
				Risk:     model.RiskLow,
			}
			if users := usersOf(def.name, s.Contributions, added, i); len(users) > 0 {
				f.Message = fmt.Sprintf("Deletes function %q which %s still uses", def.name, strings.Join(users, ", "))
				f.Severity = model.SeverityError
				f.Risk = model.RiskHigh
			}
			findings = append(findings, f)
		}
	}
	return findings
}

func removedDefinitions(s *Subject, c diff.Contribution) []removedDef {
	var defs []removedDef
	s.eachLine(c, func(l positionedLine) {
		if l.Kind != model.LineRemoved {
			return
		}
		if name := definedName(l.Text); name != "" {
			defs = append(defs, removedDef{name: name, line: l.base})
		}
	})
	return defs
}

// usersOf names the other pull requests whose additions mention name.
func usersOf(name string, contribs []diff.Contribution, added []string, self int) []string {
	ref := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	var prs []int
	for i, text := range added {
		if i != self && ref.MatchString(text) {
			prs = append(prs, prNumber(contribs[i].Source))
		}
	}
	sort.Ints(prs)
	out := make([]string, len(prs))
	for i, pr := range prs {
		out[i] = fmt.Sprintf("PR #%d", pr)
	}
	return out
}
