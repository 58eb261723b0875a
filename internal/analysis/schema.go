package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aezell/prview/internal/model"
)

// schemaFiles maps path patterns to the kind of schema they hold. The first
// match wins, so specific tools come before the generic patterns.
var schemaFiles = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"Alembic migration", regexp.MustCompile(`(?i)alembic/.*\.py$`)},
	{"Django migration", regexp.MustCompile(`/migrations/\d{4}_\w+\.py$`)},
	{"Flyway migration", regexp.MustCompile(`(?i)(flyway|/V\d+__\w+\.sql$)`)},
	{"Ecto migration", regexp.MustCompile(`priv/repo/migrations/`)},
	{"Rails migration", regexp.MustCompile(`db/migrate/\d+_\w+\.rb$`)},
	{"protobuf definition", regexp.MustCompile(`\.proto$`)},
	{"OpenAPI spec", regexp.MustCompile(`(?i)(openapi|swagger)\.(ya?ml|json)$`)},
	{"GraphQL schema", regexp.MustCompile(`(?i)\.(graphql|gql)$`)},
	{"Prisma schema", regexp.MustCompile(`\.prisma$`)},
	{"database migration", regexp.MustCompile(`(?i)migrat`)},
	{"schema definition", regexp.MustCompile(`(?i)schema`)},
}

var ddlStatement = regexp.MustCompile(
	`(?i)\b(CREATE|ALTER|DROP|RENAME|MODIFY|ADD)\s+(TABLE|INDEX|VIEW|SCHEMA|DATABASE|TYPE|SEQUENCE|COLUMN)\b`)

// SchemaChangePass flags pull requests that touch schema or migration files
// and additions that contain DDL statements.
func SchemaChangePass(s *Subject) []Finding {
	kind := schemaKind(s.Path)
	var touching []int
	if kind != "" {
		for _, c := range s.Contributions {
			if len(c.Hunks) > 0 {
				touching = append(touching, prNumber(c.Source))
			}
		}
	}

	var findings []Finding
	for _, c := range s.Contributions {
		pr := prNumber(c.Source)
		if kind != "" && len(c.Hunks) > 0 {
			f := Finding{
				Pass:     "schema",
				File:     s.Path,
				PR:       pr,
				Message:  "Changes to " + kind + " file",
				Severity: model.SeverityWarning,
				Risk:     model.RiskHigh,
			}
			if len(touching) > 1 {
				f.Risk = model.RiskCritical
				f.Message += fmt.Sprintf(" touched by %d pull requests", len(touching))
			}
			findings = append(findings, f)
		}
		for _, l := range s.addedLines(c) {
			m := ddlStatement.FindStringSubmatch(l.Text)
			if m == nil || isCommentLine(l.Text) {
				continue
			}
			findings = append(findings, Finding{
				Pass:     "schema",
				File:     s.Path,
				Line:     l.base,
				PR:       pr,
				Message:  fmt.Sprintf("%s %s statement: %s", strings.ToUpper(m[1]), strings.ToUpper(m[2]), strings.TrimSpace(l.Text)),
				Severity: model.SeverityWarning,
				Risk:     model.RiskHigh,
			})
		}
	}
	return findings
}

func schemaKind(path string) string {
	for _, sf := range schemaFiles {
		if sf.re.MatchString(path) {
			return sf.kind
		}
	}
	return ""
}
