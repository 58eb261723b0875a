// Package diff parses unified diffs and overlays patch additions onto base files.
package diff

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/aezell/prview/internal/model"
)

// File is one file section of a multi-file git diff.
type File struct {
	OldName      string
	NewName      string
	IsNew        bool
	IsDeleted    bool
	IsRenamed    bool
	IsBinary     bool
	AddedLines   int
	DeletedLines int

	frags []*gitdiff.TextFragment
}

// Name is the path shown for the file; renames show both sides.
func (f *File) Name() string {
	switch {
	case f.IsRenamed:
		return f.OldName + " → " + f.NewName
	case f.IsDeleted, f.NewName == "":
		return f.OldName
	default:
		return f.NewName
	}
}

var lineKinds = map[gitdiff.LineOp]model.LineKind{
	gitdiff.OpContext: model.LineContext,
	gitdiff.OpAdd:     model.LineAdded,
	gitdiff.OpDelete:  model.LineRemoved,
}

// Hunks converts the file's text fragments into overlay hunks.
func (f *File) Hunks() []model.Hunk {
	hunks := make([]model.Hunk, len(f.frags))
	for i, frag := range f.frags {
		h := &hunks[i]
		h.OldStart, h.OldCount = int(frag.OldPosition), int(frag.OldLines)
		h.NewStart, h.NewCount = int(frag.NewPosition), int(frag.NewLines)
		h.Section = frag.Comment
		h.Lines = make([]model.HunkLine, len(frag.Lines))
		for j, l := range frag.Lines {
			h.Lines[j] = model.HunkLine{Kind: lineKinds[l.Op], Text: strings.TrimRight(l.Line, "\r\n")}
		}
	}
	return hunks
}

// DiffSet is a parsed multi-file diff.
type DiffSet struct {
	Files []*File
}

// Stats returns the file count and the total added and deleted lines.
func (ds *DiffSet) Stats() (files, added, deleted int) {
	for _, f := range ds.Files {
		added += f.AddedLines
		deleted += f.DeletedLines
	}
	return len(ds.Files), added, deleted
}

// Lookup finds the file whose old or new name is path.
func (ds *DiffSet) Lookup(path string) (*File, bool) {
	for _, f := range ds.Files {
		if path == f.NewName || path == f.OldName {
			return f, true
		}
	}
	return nil, false
}

// Hunks returns the overlay hunks for path, or false if path is not in the diff.
func (ds *DiffSet) Hunks(path string) ([]model.Hunk, bool) {
	f, ok := ds.Lookup(path)
	if !ok {
		return nil, false
	}
	return f.Hunks(), true
}

// Parse reads a multi-file git diff such as the output of `git diff` or a
// pull request's .diff download.
func Parse(raw string) (*DiffSet, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	ds := &DiffSet{Files: make([]*File, 0, len(files))}
	for _, gf := range files {
		f := &File{
			OldName:   gf.OldName,
			NewName:   gf.NewName,
			IsNew:     gf.IsNew,
			IsDeleted: gf.IsDelete,
			IsRenamed: gf.IsRename,
			IsBinary:  gf.IsBinary,
			frags:     gf.TextFragments,
		}
		for _, frag := range gf.TextFragments {
			f.AddedLines += int(frag.LinesAdded)
			f.DeletedLines += int(frag.LinesDeleted)
		}
		ds.Files = append(ds.Files, f)
	}
	return ds, nil
}

func git(repoDir string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.Command("git", args...)
	cmd.Dir = repoDir
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

// GitDiff runs `git diff` in repoDir with args.
func GitDiff(repoDir string, args ...string) (string, error) {
	out, err := git(repoDir, append([]string{"diff"}, args...)...)
	return string(out), err
}

// GitDiffRange returns the diff of one path for a commit range like "main...feature".
func GitDiffRange(repoDir, commitRange, path string, contextLines int) (string, error) {
	return GitDiff(repoDir, fmt.Sprintf("-U%d", contextLines), commitRange, "--", path)
}

// GitShow returns the content of path at rev.
func GitShow(repoDir, rev, path string) ([]byte, error) {
	return git(repoDir, "show", rev+":"+path)
}
