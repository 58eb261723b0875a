package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aezell/prview/internal/model"
)

// sensitiveArea is a class of code where reviewers want to know every pull
// request that touches it.
type sensitiveArea struct {
	name string
	risk model.RiskLevel
	re   *regexp.Regexp
}

var sensitiveAreas = []sensitiveArea{
	{"authentication", model.RiskHigh, regexp.MustCompile(
		`(?i)(auth|login|logout|signin|signup|password|credential|jwt|oauth|session|cookie)`)},
	{"authorization", model.RiskHigh, regexp.MustCompile(
		`(?i)(permission|\brole\b|access.?control|rbac|\bacl\b|authorize|forbidden|is.?admin)`)},
	{"database", model.RiskHigh, regexp.MustCompile(
		`(?i)(db\.exec|db\.query|\.prepare\(|raw.?sql|cursor\.execute|\b(SELECT|INSERT|UPDATE|DELETE|DROP|ALTER)\s)`)},
	{"cryptography", model.RiskHigh, regexp.MustCompile(
		`(?i)(encrypt|decrypt|hmac|cipher|\baes\b|\brsa\b|sha256|bcrypt|argon|scrypt|pbkdf|private.?key|signing.?key)`)},
	{"subprocess", model.RiskHigh, regexp.MustCompile(
		`(?i)(exec\.Command|os\.system|subprocess|child_process|shell_exec|\beval\()`)},
	{"file system", model.RiskMedium, regexp.MustCompile(
		`(?i)(os\.(Remove|Rename|Chmod|Chown|WriteFile)|shutil\.|unlink|rmdir|chmod|chown|\.\./)`)},
	{"secrets", model.RiskMedium, regexp.MustCompile(
		`(?i)(getenv|os\.environ|process\.env|(api.?key|secret|token)\s*[:=])`)},
	{"network", model.RiskMedium, regexp.MustCompile(
		`(?i)(ListenAndServe|\.listen\(|allow.?origin|\bcors\b|InsecureSkipVerify|verify\s*=\s*False)`)},
}

type areaHit struct {
	pr    int
	area  sensitiveArea
	first positionedLine
	count int
}

// SecuritySurfacePass reports, once per pull request and area, additions
// that touch security-sensitive code. An area changed by more than one pull
// request in the same file is raised to RiskHigh.
func SecuritySurfacePass(s *Subject) []Finding {
	hits := make(map[string][]*areaHit)
	for _, c := range s.Contributions {
		pr := prNumber(c.Source)
		seen := make(map[string]*areaHit)
		for _, l := range s.addedLines(c) {
			if isCommentLine(l.Text) {
				continue
			}
			for _, a := range sensitiveAreas {
				if !a.re.MatchString(l.Text) {
					continue
				}
				h, ok := seen[a.name]
				if !ok {
					h = &areaHit{pr: pr, area: a, first: l}
					seen[a.name] = h
					hits[a.name] = append(hits[a.name], h)
				}
				h.count++
			}
		}
	}

	var findings []Finding
	for _, a := range sensitiveAreas {
		group := hits[a.name]
		for _, h := range group {
			risk := a.risk
			msg := fmt.Sprintf("#%d adds %d line(s) in %s code: %s", h.pr, h.count, a.name, strings.TrimSpace(h.first.Text))
			if others := otherPRs(group, h.pr); len(others) > 0 {
				risk = model.RiskHigh
				msg += fmt.Sprintf(" (also changed by %s)", strings.Join(others, ", "))
			}
			findings = append(findings, Finding{
				Pass:     "security",
				File:     s.Path,
				Line:     h.first.base,
				PR:       h.pr,
				Message:  msg,
				Severity: model.SeverityWarning,
				Risk:     risk,
			})
		}
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

func otherPRs(group []*areaHit, pr int) []string {
	var out []string
	for _, h := range group {
		if h.pr != pr {
			out = append(out, fmt.Sprintf("#%d", h.pr))
		}
	}
	return out
}
