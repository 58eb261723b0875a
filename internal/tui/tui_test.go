package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/model"
	"github.com/aezell/prview/internal/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	s := snapshot.New("octo", "demo")
	add := func(path, data string) {
		e := github.Entry{Name: path, Path: path, Type: "file"}
		s.Entries = append(s.Entries, e)
		s.AddFile(e, model.FileContent{Kind: model.ContentText, Path: path, Blob: model.NewBlob(path, []byte(data))})
	}
	add("main.go", "package main\n\nfunc main() {\n}\n")
	add("README.md", "# demo\n")
	logo := github.Entry{Name: "logo.png", Path: "logo.png", Type: "file"}
	s.AddFile(logo, model.FileContent{Kind: model.ContentBinary, Path: "logo.png", Size: 10})

	s.AddPR(&snapshot.PR{
		PullRequest: github.PullRequest{Number: 3, Title: "Say hi"},
		Files: github.FileList{Files: []github.PRFile{
			{Filename: "main.go", Patch: "@@ -3,1 +3,2 @@\n func main() {\n+\tprintln(\"hi\")\n", HasPatch: true},
		}},
	})
	s.AddPR(&snapshot.PR{
		PullRequest: github.PullRequest{Number: 5, Title: "Say bye"},
		Files: github.FileList{Files: []github.PRFile{
			{Filename: "main.go", Patch: "@@ -3,1 +3,2 @@\n func main() {\n+\tprintln(\"bye\")\n", HasPatch: true},
			{Filename: "NEW.md", Patch: "@@ -0,0 +1 @@\n+new", HasPatch: true},
		}},
	})
	return s
}

func setupModel(t *testing.T) Model {
	t.Helper()
	m := New(testSnapshot(), nil, "")
	// Simulate window size
	newM, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return newM.(Model)
}

func press(m Model, r rune) Model {
	newM, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return newM.(Model)
}

func TestModelInit(t *testing.T) {
	m := setupModel(t)

	if len(m.files) != 4 {
		t.Fatalf("expected 4 files (3 base + 1 PR-only), got %d", len(m.files))
	}
	if m.files[0].Path != "main.go" || m.files[0].PRs != 2 {
		t.Errorf("unexpected first file %+v", m.files[0])
	}
	if m.files[3].Path != "NEW.md" {
		t.Errorf("expected PR-only file last, got %q", m.files[3].Path)
	}
	if len(m.views) != 4 {
		t.Errorf("expected base, interleaved and 2 PR views, got %d", len(m.views))
	}
	if len(m.lines) != 4 {
		t.Errorf("expected 4 base lines, got %d", len(m.lines))
	}
}

func TestViewCycling(t *testing.T) {
	m := setupModel(t)

	m = press(m, 'v')
	if !m.views[m.viewIndex].All {
		t.Fatalf("expected interleaved view, got %+v", m.views[m.viewIndex])
	}
	var added []int
	for _, l := range m.lines {
		if l.Added {
			added = append(added, l.Source)
		}
	}
	if len(added) != 2 || added[0] != 3 || added[1] != 5 {
		t.Errorf("expected additions from #3 then #5, got %v", added)
	}

	m = press(m, 'v')
	if m.views[m.viewIndex].PR != 3 {
		t.Errorf("expected PR #3 view, got %+v", m.views[m.viewIndex])
	}
	count := 0
	for _, l := range m.lines {
		if l.Added {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 added line in single-PR view, got %d", count)
	}

	m = press(m, 'v')
	m = press(m, 'v')
	if m.viewIndex != 0 {
		t.Errorf("expected views to wrap to base, got %d", m.viewIndex)
	}

	m = press(m, 'V')
	if m.views[m.viewIndex].PR != 5 {
		t.Errorf("expected PR #5 view going backwards, got %+v", m.views[m.viewIndex])
	}
}

func TestNavigation(t *testing.T) {
	m := setupModel(t)

	m = press(m, 'n')
	if m.fileIndex != 1 || len(m.views) != 1 {
		t.Errorf("expected README with only a base view, got index %d views %d", m.fileIndex, len(m.views))
	}

	m = press(m, 'n')
	if len(m.lines) != 1 || !m.lines[0].IsNote {
		t.Errorf("expected placeholder for binary file, got %+v", m.lines)
	}

	m = press(m, 'n')
	m = press(m, 'n')
	if m.fileIndex != 3 {
		t.Errorf("expected to stay on last file, got %d", m.fileIndex)
	}

	m = press(m, 'N')
	if m.fileIndex != 2 {
		t.Errorf("expected fileIndex 2 after prev, got %d", m.fileIndex)
	}
}

func TestChangedOnly(t *testing.T) {
	m := setupModel(t)

	m = press(m, 'c')
	if len(m.files) != 2 {
		t.Fatalf("expected 2 changed files, got %d", len(m.files))
	}
	for _, f := range m.files {
		if f.PRs == 0 {
			t.Errorf("unchanged file %q listed", f.Path)
		}
	}

	m = press(m, 'c')
	if len(m.files) != 4 {
		t.Errorf("expected all files back, got %d", len(m.files))
	}
}

func TestScrolling(t *testing.T) {
	m := setupModel(t)

	m = press(m, 'j')
	if m.scrollOffset != 1 {
		t.Errorf("expected scrollOffset 1, got %d", m.scrollOffset)
	}

	m = press(m, 'k')
	m = press(m, 'k')
	if m.scrollOffset != 0 {
		t.Errorf("expected scrollOffset 0 at top, got %d", m.scrollOffset)
	}
}

func TestJumpToAdded(t *testing.T) {
	m := setupModel(t)
	m = press(m, 'v')

	m = press(m, ']')
	if !m.lines[m.scrollOffset].Added {
		t.Fatalf("expected to land on an added line, got %+v", m.lines[m.scrollOffset])
	}
	landed := m.scrollOffset

	m = press(m, ']')
	if m.scrollOffset != landed {
		t.Errorf("adjacent additions form one run; expected to stay at %d, got %d", landed, m.scrollOffset)
	}

	m = press(m, 'j')
	m = press(m, '[')
	if m.scrollOffset != landed {
		t.Errorf("expected to jump back to %d, got %d", landed, m.scrollOffset)
	}
}

func TestViewRenders(t *testing.T) {
	m := setupModel(t)
	m = press(m, 'v')

	out := m.View()
	for _, want := range []string{"main.go", "All PRs (interleaved)", "#3", "octo/demo"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestViewBeforeResize(t *testing.T) {
	m := New(testSnapshot(), nil, "")
	if m.View() != "Loading..." {
		t.Errorf("expected loading message before window size is known")
	}
}

func TestHelpToggle(t *testing.T) {
	m := setupModel(t)

	m = press(m, '?')
	if !m.showHelp {
		t.Fatal("expected help to be shown")
	}
	if !strings.Contains(m.View(), "next view") {
		t.Error("expected help to list the view binding")
	}

	m = press(m, '?')
	if m.showHelp {
		t.Error("expected help to be hidden")
	}
}

func TestEmptySnapshot(t *testing.T) {
	m := New(snapshot.New("o", "r"), nil, "")
	newM, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = newM.(Model)
	if !strings.Contains(m.View(), "No files") {
		t.Error("expected empty file list message")
	}
	m = press(m, 'v')
	m = press(m, ']')
}
