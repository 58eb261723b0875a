package analysis

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

// Anti-pattern regexes.
var (
	// Broad exception handling
	broadExceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)except\s*:`),                           // Python: bare except
		regexp.MustCompile(`(?i)except\s+Exception\s*:`),               // Python: catch-all
		regexp.MustCompile(`(?i)catch\s*\(\s*(Exception|Error|e)\s*\)`), // Java/C#
		regexp.MustCompile(`(?i)catch\s*\(\s*err(?:or)?\s*\)\s*\{`),    // catch (err) {
		regexp.MustCompile(`(?i)catch\s*\{`),                           // Scala/Kotlin bare catch
		regexp.MustCompile(`(?i)rescue\s*$`),                           // Ruby: bare rescue
		regexp.MustCompile(`(?i)rescue\s+StandardError`),               // Ruby: catch-all
		regexp.MustCompile(`\.catch\(\s*(?:_|err|\(\s*\))\s*=>`),       // JS: .catch((_) => or .catch(() =>
	}

	// Lines that look like disabled code rather than prose comments
	commentedCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?://|#)\s*(?:func |def |class |if |for |while |return |import |from |const |let |var |pub fn )`),
		regexp.MustCompile(`^\s*(?://|#)\s*\w+\s*[({=]`),
		regexp.MustCompile(`^\s*{?/\*.*\b(?:func|def|class|return)\b.*\*/}?`),
	}

	// Work-in-progress markers
	todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX|TEMP|TEMPORARY)\b`)
)

// AntiPatternPass flags questionable additions and blocks that two pull
// requests both add to the same file.
func AntiPatternPass(s *Subject) []Finding {
	var findings []Finding

	for _, c := range s.Contributions {
		pr := prNumber(c.Source)
		for _, l := range s.addedLines(c) {
			if f, ok := checkLine(s.Path, pr, l); ok {
				findings = append(findings, f)
			}
		}
	}

	findings = append(findings, checkDuplication(s)...)
	return findings
}

func checkLine(path string, pr int, l positionedLine) (Finding, bool) {
	f := Finding{
		Pass:     "anti_patterns",
		File:     path,
		Line:     l.base,
		PR:       pr,
		Severity: model.SeverityWarning,
	}
	text := strings.TrimSpace(l.Text)

	switch {
	case matchesAny(broadExceptPatterns, l.Text):
		f.Message = "Broad exception handling: " + text
		f.Risk = model.RiskMedium
	case matchesAny(commentedCodePatterns, l.Text):
		f.Message = "Commented-out code: " + text
		f.Risk = model.RiskLow
	default:
		marker := todoPattern.FindString(l.Text)
		if marker == "" {
			return Finding{}, false
		}
		f.Message = fmt.Sprintf("Adds %s marker: %s", marker, text)
		f.Risk = model.RiskLow
	}
	return f, true
}

// checkDuplication looks for the same block of added lines in two different
// pull requests, which usually means duplicated or competing work.
func checkDuplication(s *Subject) []Finding {
	const windowSize = 4

	type blockLoc struct {
		pr   int
		line int
	}
	blocks := make(map[string][]blockLoc)
	var order []string

	for _, c := range s.Contributions {
		added := significantLines(s, c)
		seen := make(map[string]bool)
		for i := 0; i+windowSize <= len(added); i++ {
			window := make([]string, windowSize)
			for j := range window {
				window[j] = added[i+j].Text
			}
			h := hashBlock(window)
			if seen[h] {
				continue
			}
			seen[h] = true
			if _, ok := blocks[h]; !ok {
				order = append(order, h)
			}
			blocks[h] = append(blocks[h], blockLoc{pr: prNumber(c.Source), line: added[i].base})
		}
	}

	var findings []Finding
	reported := make(map[[2]int]bool)
	for _, h := range order {
		locs := blocks[h]
		first := locs[0]
		for _, loc := range locs[1:] {
			key := [2]int{first.pr, loc.pr}
			if loc.pr == first.pr || reported[key] {
				continue
			}
			reported[key] = true
			findings = append(findings, Finding{
				Pass:     "anti_patterns",
				File:     s.Path,
				Line:     loc.line,
				PR:       loc.pr,
				Message:  fmt.Sprintf("Adds the same block as PR #%d (line %d)", first.pr, first.line),
				Severity: model.SeverityWarning,
				Risk:     model.RiskMedium,
			})
		}
	}
	return findings
}

// significantLines returns trimmed added lines, skipping blanks and lone brackets.
func significantLines(s *Subject, c diff.Contribution) []positionedLine {
	var out []positionedLine
	for _, l := range s.addedLines(c) {
		trimmed := strings.TrimSpace(l.Text)
		switch trimmed {
		case "", "{", "}", "(", ")":
			continue
		}
		l.Text = trimmed
		out = append(out, l)
	}
	return out
}

func hashBlock(lines []string) string {
	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
