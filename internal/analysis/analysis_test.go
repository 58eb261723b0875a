package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

func contribution(t *testing.T, id int, patch string) diff.Contribution {
	t.Helper()
	hunks, err := diff.ParseHunks(patch)
	if err != nil {
		t.Fatalf("ParseHunks: %v", err)
	}
	return diff.Contribution{Source: &model.PatchSource{ID: id}, Hunks: hunks}
}

func subject(t *testing.T, path, base string, contribs ...diff.Contribution) *Subject {
	t.Helper()
	return NewSubject(path, model.NewBlob(path, []byte(base)), contribs)
}

func findingsFor(findings []Finding, pass string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Pass == pass {
			out = append(out, f)
		}
	}
	return out
}

const tenLines = "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"

// --- Overlap tests ---

func TestOverlapPass(t *testing.T) {
	s := subject(t, "f.txt", tenLines,
		contribution(t, 1, "@@ -3,3 +3,3 @@\n 3\n-4\n+four\n 5\n"),
		contribution(t, 2, "@@ -4,2 +4,2 @@\n-4\n+FOUR\n 5\n"),
		contribution(t, 3, "@@ -8,2 +8,2 @@\n 8\n-9\n+nine\n"),
	)

	findings := OverlapPass(s)
	if len(findings) != 1 {
		t.Fatalf("expected 1 overlap, got %d: %v", len(findings), findings)
	}
	f := findings[0]
	if f.Risk != model.RiskHigh || f.Line != 4 {
		t.Errorf("unexpected finding %+v", f)
	}
	if !strings.Contains(f.Message, "#1 and #2") {
		t.Errorf("message should name both PRs: %q", f.Message)
	}
}

func TestOverlapIgnoresSharedContext(t *testing.T) {
	s := subject(t, "f.txt", tenLines,
		contribution(t, 1, "@@ -2,3 +2,3 @@\n 2\n-3\n+three\n 4\n"),
		contribution(t, 2, "@@ -3,3 +3,3 @@\n 3\n-4\n+four\n 5\n"),
	)
	if findings := OverlapPass(s); len(findings) != 0 {
		t.Errorf("context-only overlap should not be reported: %v", findings)
	}
}

// --- Hotspot tests ---

func TestHotspotPass(t *testing.T) {
	insert := "@@ -5,0 +6 @@\n+new\n"
	s := subject(t, "f.txt", tenLines,
		contribution(t, 9, insert),
		contribution(t, 5, insert),
		contribution(t, 7, insert),
	)

	findings := HotspotPass(s)
	if len(findings) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(findings))
	}
	if findings[0].Line != 5 || findings[0].Risk != model.RiskMedium {
		t.Errorf("unexpected finding %+v", findings[0])
	}
	if !strings.Contains(findings[0].Message, "#5, #7, #9") {
		t.Errorf("PRs should be listed in ID order: %q", findings[0].Message)
	}

	s = subject(t, "f.txt", tenLines, contribution(t, 1, insert), contribution(t, 2, insert))
	if got := HotspotPass(s); len(got) != 0 {
		t.Errorf("two PRs are below the threshold: %v", got)
	}
}

// --- Warnings tests ---

func TestWarningsPass(t *testing.T) {
	s := subject(t, "f.txt", tenLines,
		contribution(t, 4, "@@ -1,9 +1,2 @@\n 1\n+x\n"),
	)
	findings := WarningsPass(s)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %v", findings)
	}
	if findings[0].PR != 4 || findings[0].Risk != model.RiskLow {
		t.Errorf("unexpected finding %+v", findings[0])
	}
	if !strings.HasPrefix(findings[0].Message, "inconsistent_hunk_counts") {
		t.Errorf("unexpected message %q", findings[0].Message)
	}
}

func TestWarningsPassNonTextFile(t *testing.T) {
	w := model.Warning{Kind: model.WarnFetchFailed, Hunk: -1, Message: "blob unavailable"}
	s := NewSubject("logo.png", nil, nil, w)
	if s.Overlay != nil {
		t.Error("no overlay without a base blob")
	}
	if got := WarningsPass(s); len(got) != 1 {
		t.Errorf("expected fetch warning to become a finding, got %v", got)
	}
}

// --- Dependency detection tests ---

const goMod = `module example.com/myapp

go 1.21

require (
	github.com/existing/dep v1.0.0
)
`

func TestNewDependencyPass(t *testing.T) {
	s := subject(t, "go.mod", goMod,
		contribution(t, 12, "@@ -5,3 +5,5 @@\n require (\n+\tgithub.com/newdep/foo v1.2.3\n+\tgithub.com/anotherdep/bar v0.1.0\n \tgithub.com/existing/dep v1.0.0\n )\n"),
	)

	findings := NewDependencyPass(s)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d: %v", len(findings), findings)
	}
	for _, f := range findings {
		if f.Pass != "deps" || f.PR != 12 || f.Risk != model.RiskMedium {
			t.Errorf("unexpected finding %+v", f)
		}
	}
	if findings[0].Line != 5 {
		t.Errorf("expected additions anchored after line 5, got %d", findings[0].Line)
	}
}

func TestNewDependencyPassSharedDep(t *testing.T) {
	add := "@@ -5,3 +5,4 @@\n require (\n+\tgithub.com/newdep/foo v1.2.3\n \tgithub.com/existing/dep v1.0.0\n )\n"
	s := subject(t, "go.mod", goMod, contribution(t, 1, add), contribution(t, 2, add))

	findings := NewDependencyPass(s)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %v", findings)
	}
	for _, f := range findings {
		if f.Risk != model.RiskHigh || !strings.Contains(f.Message, "also added by") {
			t.Errorf("shared dependency should be high risk: %+v", f)
		}
	}
}

func TestNewDependencyPassIgnoresOtherFiles(t *testing.T) {
	s := subject(t, "main.go", "package main\n",
		contribution(t, 1, "@@ -1 +1,2 @@\n package main\n+\tgithub.com/newdep/foo v1.2.3\n"))
	if findings := NewDependencyPass(s); len(findings) != 0 {
		t.Errorf("expected no findings outside manifests, got %v", findings)
	}
}

func TestParseDepLine(t *testing.T) {
	tests := []struct {
		line, eco, want string
	}{
		{`"lodash": "^4.17.21",`, "npm", "lodash"},
		{`"@babel/core": "^7.24.0",`, "npm", "@babel/core"},
		{`"name": "myapp",`, "npm", ""},
		{`"dependencies": {`, "npm", ""},
		{"requests>=2.31", "pip", "requests"},
		{"# comment", "pip", ""},
		{`serde = "1.0"`, "cargo", "serde"},
		{`tokio = { version = "1", features = ["full"] }`, "cargo", "tokio"},
		{`edition = "2021"`, "cargo", ""},
		{"django[argon2]==5.0", "pip", "django"},
		{`gem 'rails', '~> 7.0'`, "gem", "rails"},
		{`{:jason, "~> 1.4"}`, "hex", "jason"},
		{"require github.com/x/y v1.0.0", "go", "github.com/x/y"},
		{"module example.com/myapp", "go", ""},
		{"anything", "nuget", ""},
	}
	for _, tt := range tests {
		if got := parseDepLine(tt.line, tt.eco); got != tt.want {
			t.Errorf("parseDepLine(%q, %s) = %q, want %q", tt.line, tt.eco, got, tt.want)
		}
	}
}

// --- Security surface tests ---

func TestSecuritySurfacePass(t *testing.T) {
	s := subject(t, "auth.go", "package main\n",
		contribution(t, 3, "@@ -1 +1,4 @@\n package main\n+// checks the password\n+func checkPassword(p string) bool { return p != \"\" }\n+var cmd = exec.Command(\"ls\")\n"),
	)
	findings := SecuritySurfacePass(s)

	areas := map[string]Finding{}
	for _, f := range findings {
		if strings.Contains(f.Message, "// checks") {
			t.Errorf("comment lines should be skipped: %q", f.Message)
		}
		for _, a := range sensitiveAreas {
			if strings.Contains(f.Message, " in "+a.name+" code:") {
				areas[a.name] = f
			}
		}
	}
	auth, ok := areas["authentication"]
	if !ok {
		t.Fatalf("expected authentication finding, got %v", findings)
	}
	if !strings.HasPrefix(auth.Message, "#3 adds 1 line(s)") || auth.PR != 3 {
		t.Errorf("unexpected authentication finding %+v", auth)
	}
	if _, ok := areas["subprocess"]; !ok {
		t.Errorf("expected subprocess finding, got %v", findings)
	}
}

func TestSecuritySurfaceSharedArea(t *testing.T) {
	s := subject(t, "env.go", "package main\n",
		contribution(t, 1, "@@ -1 +1,2 @@\n package main\n+var home = os.Getenv(\"HOME\")\n"),
		contribution(t, 2, "@@ -1 +1,2 @@\n package main\n+var user = os.Getenv(\"USER\")\n"),
	)
	findings := SecuritySurfacePass(s)
	if len(findings) != 2 {
		t.Fatalf("expected one finding per PR, got %v", findings)
	}
	for _, f := range findings {
		if f.Risk != model.RiskHigh {
			t.Errorf("shared area should escalate to high: %+v", f)
		}
		other := 3 - f.PR
		if !strings.Contains(f.Message, fmt.Sprintf("also changed by #%d", other)) {
			t.Errorf("message should name #%d: %q", other, f.Message)
		}
	}
}

func TestPassesSkipDroppedHunks(t *testing.T) {
	s := subject(t, "env.go", "a\nb\nc\n",
		contribution(t, 1, "@@ -1,2 +1,3 @@\n a\n b\n+x := 1\n@@ -2,1 +2,2 @@\n b\n+var home = os.Getenv(\"HOME\")\n"),
	)
	if findings := SecuritySurfacePass(s); len(findings) != 0 {
		t.Errorf("the overlapping second hunk is dropped by the overlay, got %v", findings)
	}
	if kinds := s.Warnings; len(kinds) == 0 || kinds[0].Kind != model.WarnOverlappingHunks {
		t.Errorf("expected an overlapping hunk warning, got %v", s.Warnings)
	}
}

func TestPassLinesClampedToBase(t *testing.T) {
	s := subject(t, "env.go", "a\nb\nc\n",
		contribution(t, 2, "@@ -10,1 +10,2 @@\n q\n+var home = os.Getenv(\"HOME\")\n"),
	)
	findings := SecuritySurfacePass(s)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %v", findings)
	}
	if findings[0].Line != 3 {
		t.Errorf("line should be clamped to the 3-line base, got %d", findings[0].Line)
	}
}

// --- Deleted code tests ---

const pyBase = "def helper():\n    return 1\n\ndef main():\n    return helper()\n"

func TestDeletedCodePass(t *testing.T) {
	s := subject(t, "app.py", pyBase,
		contribution(t, 1, "@@ -1,3 +1,0 @@\n-def helper():\n-    return 1\n-\n"),
		contribution(t, 2, "@@ -5 +5,2 @@\n     return helper()\n+    print(helper())\n"),
	)
	findings := DeletedCodePass(s)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %v", findings)
	}
	f := findings[0]
	if f.Risk != model.RiskHigh || f.PR != 1 || f.Line != 1 {
		t.Errorf("unexpected finding %+v", f)
	}
	if !strings.Contains(f.Message, "PR #2") {
		t.Errorf("message should name the PR still using the function: %q", f.Message)
	}
}

func TestDeletedCodePassUnused(t *testing.T) {
	s := subject(t, "app.py", pyBase,
		contribution(t, 1, "@@ -1,3 +1,0 @@\n-def helper():\n-    return 1\n-\n"),
	)
	findings := DeletedCodePass(s)
	if len(findings) != 1 || findings[0].Risk != model.RiskLow {
		t.Errorf("expected one low-risk finding, got %v", findings)
	}
}

func TestDefinedName(t *testing.T) {
	tests := []struct{ line, want string }{
		{"func Parse(raw string) error {", "Parse"},
		{"func (s *Server) Serve(ctx context.Context) error {", "Serve"},
		{"func Map[T any](xs []T) []T {", "Map"},
		{"    async def fetch(self, url):", "fetch"},
		{"  defp normalize(value) do", "normalize"},
		{"export async function loadUser(id) {", "loadUser"},
		{"const handler = async (req) => {", "handler"},
		{"pub fn parse<T>(input: &str) -> T {", "parse"},
		{"    public static void main(String[] args) {", "main"},
		{"x := compute(1)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := definedName(tt.line); got != tt.want {
			t.Errorf("definedName(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

// --- Schema tests ---

func TestSchemaChangePass(t *testing.T) {
	s := subject(t, "db/migrations/001_init.sql", "-- init\n",
		contribution(t, 6, "@@ -1 +1,2 @@\n -- init\n+CREATE TABLE users (id int);\n"),
	)
	findings := SchemaChangePass(s)
	if len(findings) != 2 {
		t.Fatalf("expected file and DDL findings, got %v", findings)
	}
	if findings[0].Line != 0 || !strings.Contains(findings[0].Message, "migration") {
		t.Errorf("unexpected file finding %+v", findings[0])
	}
	if findings[1].Line != 1 {
		t.Errorf("unexpected DDL finding %+v", findings[1])
	}
}

func TestSchemaChangeSharedFile(t *testing.T) {
	path := "app/migrations/0002_add_email.py"
	s := subject(t, path, "class Migration:\n",
		contribution(t, 1, "@@ -1 +1,2 @@\n class Migration:\n+    x = 1\n"),
		contribution(t, 2, "@@ -1 +1,2 @@\n class Migration:\n+    y = 2\n"),
	)
	findings := SchemaChangePass(s)
	if len(findings) != 2 {
		t.Fatalf("expected one finding per PR, got %v", findings)
	}
	for _, f := range findings {
		if f.Risk != model.RiskCritical || !strings.Contains(f.Message, "Django migration") {
			t.Errorf("unexpected finding %+v", f)
		}
	}
}

func TestSchemaChangeIgnoresPlainFiles(t *testing.T) {
	s := subject(t, "README.md", "hi\n",
		contribution(t, 1, "@@ -1 +1,2 @@\n hi\n+we will ALTER TABLE later\n"),
	)
	findings := SchemaChangePass(s)
	if len(findings) != 1 || findings[0].Line != 1 || !strings.HasPrefix(findings[0].Message, "ALTER TABLE statement") {
		t.Errorf("expected only the DDL finding, got %v", findings)
	}
}

// --- Anti-pattern tests ---

func TestAntiPatternPass(t *testing.T) {
	s := subject(t, "app.py", "import os\n",
		contribution(t, 2, "@@ -1 +1,4 @@\n import os\n+try:\n+    pass\n+except:\n"),
		contribution(t, 3, "@@ -1 +1,3 @@\n import os\n+# TODO: remove\n+# return os.remove(path)\n"),
	)
	findings := AntiPatternPass(s)

	var msgs []string
	for _, f := range findings {
		msgs = append(msgs, f.Message)
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{"Broad exception handling", "Adds TODO marker", "Commented-out code"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in findings:\n%s", want, joined)
		}
	}
}

func TestAntiPatternDuplicateBlocks(t *testing.T) {
	block := "+a = 1\n+b = 2\n+c = 3\n+d = 4\n"
	s := subject(t, "app.py", "x\ny\n",
		contribution(t, 10, "@@ -1 +1,5 @@\n x\n"+block),
		contribution(t, 11, "@@ -2 +2,5 @@\n y\n"+block),
	)
	dups := findingsFor(AntiPatternPass(s), "anti_patterns")
	if len(dups) != 1 {
		t.Fatalf("expected 1 duplicate finding, got %v", dups)
	}
	if dups[0].PR != 11 || !strings.Contains(dups[0].Message, "PR #10") {
		t.Errorf("unexpected duplicate finding %+v", dups[0])
	}
}

// --- Results tests ---

func TestRunSkipAndSummary(t *testing.T) {
	insert := "@@ -5,0 +6 @@\n+new\n"
	subjects := []*Subject{
		subject(t, "b.txt", tenLines,
			contribution(t, 1, insert), contribution(t, 2, insert), contribution(t, 3, insert)),
		subject(t, "a.txt", tenLines,
			contribution(t, 1, "@@ -4 +4 @@\n-4\n+x\n"), contribution(t, 2, "@@ -4 +4 @@\n-4\n+y\n")),
	}

	results := Run(subjects, nil)
	if len(results.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %v", results.Findings)
	}
	if results.Findings[0].File != "a.txt" {
		t.Errorf("findings should be sorted by file, got %s first", results.Findings[0].File)
	}
	if results.MaxRisk() != model.RiskHigh {
		t.Errorf("MaxRisk = %s", results.MaxRisk())
	}
	if got := results.Summary(); got != "1 high, 1 medium" {
		t.Errorf("Summary = %q", got)
	}
	if len(results.ByFile()["b.txt"]) != 1 {
		t.Errorf("ByFile = %v", results.ByFile())
	}

	skipped := Run(subjects, []string{"overlap", "hotspot"})
	if len(skipped.Findings) != 0 {
		t.Errorf("expected no findings with passes skipped, got %v", skipped.Findings)
	}
	if skipped.Summary() != "No issues found" {
		t.Errorf("Summary = %q", skipped.Summary())
	}
}

func TestFindingString(t *testing.T) {
	f := Finding{Pass: "overlap", File: "a.go", Line: 3, Message: "m"}
	if got := f.String(); got != "[overlap] a.go:3: m" {
		t.Errorf("String = %q", got)
	}
	f.PR = 7
	if got := f.String(); got != "[overlap] a.go:3 (#7): m" {
		t.Errorf("String = %q", got)
	}
}

func TestPassNames(t *testing.T) {
	names := PassNames()
	if len(names) != len(AllPasses()) || names[0] != "overlap" {
		t.Errorf("PassNames = %v", names)
	}
}
