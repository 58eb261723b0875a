package diff

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aezell/prview/internal/model"
)

func TestParseHunks(t *testing.T) {
	text := "diff --git a/f b/f\n" +
		"--- a/f\n" +
		"+++ b/f\n" +
		"@@ -2,1 +2,2 @@ func main() {\n" +
		" b\n" +
		"+x\n" +
		"@@ -9 +10 @@\n" +
		"-old\n" +
		"+new\n" +
		"\\ No newline at end of file\n"

	hunks, err := ParseHunks(text)
	if err != nil {
		t.Fatalf("ParseHunks: %v", err)
	}
	if len(hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(hunks))
	}

	first := hunks[0]
	if first.OldStart != 2 || first.OldCount != 1 || first.NewStart != 2 || first.NewCount != 2 {
		t.Errorf("first header parsed as %s", first.Header())
	}
	if first.Section != "func main() {" {
		t.Errorf("section = %q", first.Section)
	}
	want := []model.HunkLine{{Kind: model.LineContext, Text: "b"}, {Kind: model.LineAdded, Text: "x"}}
	if !reflect.DeepEqual(first.Lines, want) {
		t.Errorf("first lines = %+v", first.Lines)
	}

	second := hunks[1]
	if second.OldCount != 1 || second.NewCount != 1 {
		t.Errorf("omitted counts should default to 1, got %s", second.Header())
	}
	if len(second.Lines) != 2 {
		t.Errorf("expected backslash marker to be dropped, got %+v", second.Lines)
	}
}

func TestParseHunksEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantHunks int
		wantErr   bool
	}{
		{"empty", "", 0, false},
		{"whitespace only", "  \n\t\n", 0, false},
		{"no header", "+added\n-removed\n", 0, true},
		{"broken header only", "@@ nonsense @@\n+x\n", 0, true},
		{"broken header skipped", "@@ nonsense @@\n@@ -1 +1,2 @@\n a\n+b\n", 1, false},
		{"crlf", "@@ -1 +1,2 @@\r\n a\r\n+b\r\n", 1, false},
		{"empty hunk body", "@@ -0,0 +0,0 @@\n", 1, false},
		{"miscounted header", "@@ -1,5 +1,6 @@\n a\n+x\n", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hunks, err := ParseHunks(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPatch) {
					t.Fatalf("expected ErrMalformedPatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(hunks) != tt.wantHunks {
				t.Errorf("expected %d hunks, got %d", tt.wantHunks, len(hunks))
			}
		})
	}
}

func TestParseHunksCRLFText(t *testing.T) {
	hunks, err := ParseHunks("@@ -1 +1,2 @@\r\n a\r\n+b\r\n")
	if err != nil {
		t.Fatalf("ParseHunks: %v", err)
	}
	if got := hunks[0].Added(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("added = %q", got)
	}
}

func TestParseHunksBlankContextLine(t *testing.T) {
	// Some tools strip the leading space from empty context lines.
	hunks, err := ParseHunks("@@ -1,3 +1,4 @@\n a\n\n+x\n c\n")
	if err != nil {
		t.Fatalf("ParseHunks: %v", err)
	}
	if !hunks[0].Consistent() {
		t.Errorf("expected bare empty line to count as context: %+v", hunks[0].Lines)
	}
}

func TestAddedLines(t *testing.T) {
	got := AddedLines("@@ -1 +1,3 @@\n a\n+x\n+y\n@@ -5,0 +7 @@\n+z\n")
	want := []string{"x", "y", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AddedLines = %q, want %q", got, want)
	}
	if got := AddedLines("not a patch"); got != nil {
		t.Errorf("expected nil for malformed patch, got %q", got)
	}
}
