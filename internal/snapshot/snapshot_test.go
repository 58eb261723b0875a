package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aezell/prview/internal/github"
	"github.com/aezell/prview/internal/model"
)

type stubAPI struct {
	dirs  map[string][]github.Entry
	blobs map[string][]byte
	prs   []github.PullRequest
	files map[int]github.FileList
}

func (s *stubAPI) Contents(_ context.Context, dir string) ([]github.Entry, error) {
	entries, ok := s.dirs[dir]
	if !ok {
		return nil, errors.New("no such dir")
	}
	return entries, nil
}

func (s *stubAPI) Blob(_ context.Context, sha string) ([]byte, error) {
	data, ok := s.blobs[sha]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return data, nil
}

func (s *stubAPI) PullRequests(context.Context, string) ([]github.PullRequest, error) {
	return s.prs, nil
}

func (s *stubAPI) PullRequestFiles(_ context.Context, number int) (github.FileList, error) {
	l, ok := s.files[number]
	if !ok {
		return github.FileList{}, errors.New("files unavailable")
	}
	return l, nil
}

func newStub() *stubAPI {
	return &stubAPI{
		dirs: map[string][]github.Entry{
			"": {
				{Name: "main.py", Path: "main.py", Type: "file", SHA: "m", Size: 6},
				{Name: "big.bin", Path: "big.bin", Type: "file", SHA: "big", Size: 1 << 20},
				{Name: "gone.txt", Path: "gone.txt", Type: "file", SHA: "gone", Size: 4},
				{Name: "pkg", Path: "pkg", Type: "dir"},
			},
			"pkg": {
				{Name: "util.py", Path: "pkg/util.py", Type: "file", SHA: "u", Size: 2},
			},
		},
		blobs: map[string][]byte{
			"m": []byte("a\nb\nc\n"),
			"u": []byte("x\n"),
		},
		prs: []github.PullRequest{
			{Number: 9, Title: "Nine"},
			{Number: 5, Title: "Five"},
			{Number: 7, Title: "Seven"},
		},
		files: map[int]github.FileList{
			5: {Files: []github.PRFile{
				{Filename: "main.py", Patch: "@@ -1,1 +1,2 @@\n a\n+five\n", HasPatch: true},
				{Filename: "new.py", Patch: "@@ -0,0 +1 @@\n+fresh\n", HasPatch: true},
			}},
			9: {Files: []github.PRFile{
				{Filename: "main.py", Patch: "@@ -1,1 +1,2 @@\n a\n+nine\n", HasPatch: true},
				{Filename: "gone.txt", Patch: "nonsense", HasPatch: true},
			}, Truncated: true},
		},
	}
}

func collect(t *testing.T) *Snapshot {
	t.Helper()
	s, err := Collect(context.Background(), newStub(), "o", "r", Options{State: "open", MaxFileSize: 1024})
	require.NoError(t, err)
	return s
}

func TestCollect(t *testing.T) {
	s := collect(t)

	assert.Len(t, s.Entries, 5)
	require.Len(t, s.Files, 4)

	kinds := map[string]model.ContentKind{}
	for _, f := range s.Files {
		kinds[f.Entry.Path] = f.Content.Kind
	}
	assert.Equal(t, map[string]model.ContentKind{
		"main.py":     model.ContentText,
		"big.bin":     model.ContentOversized,
		"gone.txt":    model.ContentMissing,
		"pkg/util.py": model.ContentText,
	}, kinds)

	var numbers []int
	for _, p := range s.PRs {
		numbers = append(numbers, p.Number)
	}
	assert.Equal(t, []int{5, 7, 9}, numbers)

	seven, ok := s.PR(7)
	require.True(t, ok)
	assert.Error(t, seven.Err)
	_, ok = s.PR(6)
	assert.False(t, ok)
}

func TestCollectRootFailure(t *testing.T) {
	api := newStub()
	delete(api.dirs, "")
	_, err := Collect(context.Background(), api, "o", "r", Options{})
	assert.Error(t, err)
}

func TestPRWarnings(t *testing.T) {
	s := collect(t)

	seven, _ := s.PR(7)
	w := seven.Warnings()
	require.Len(t, w, 1)
	assert.Equal(t, model.WarnFetchFailed, w[0].Kind)

	nine, _ := s.PR(9)
	w = nine.Warnings()
	require.Len(t, w, 1)
	assert.Equal(t, model.WarnTruncated, w[0].Kind)
	assert.Equal(t, 9, w[0].Source.ID)
}

func TestOverlay(t *testing.T) {
	s := collect(t)

	got, ok := s.Overlay("main.py")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "five", "nine", "b", "c"}, got.Plain())

	_, ok = s.Overlay("big.bin")
	assert.False(t, ok)

	added, ok := s.Overlay("new.py")
	require.True(t, ok)
	assert.Equal(t, []string{"fresh"}, added.Plain())
}

func TestApplied(t *testing.T) {
	s := collect(t)

	got, ok := s.Applied("main.py", 9)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "nine", "b", "c"}, got.Plain())

	_, ok = s.Applied("main.py", 7)
	assert.False(t, ok)
}

func TestTouching(t *testing.T) {
	s := collect(t)

	var numbers []int
	for _, p := range s.Touching("main.py") {
		numbers = append(numbers, p.Number)
	}
	assert.Equal(t, []int{5, 9}, numbers)
	assert.Empty(t, s.Touching("pkg/util.py"))
	assert.Equal(t, []string{"gone.txt", "main.py", "new.py"}, s.ChangedPaths())
}

func TestContributionsMalformed(t *testing.T) {
	s := collect(t)

	contribs, warnings := s.Contributions("gone.txt")
	assert.Empty(t, contribs)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnMalformedPatch, warnings[0].Kind)
}

func TestSubjects(t *testing.T) {
	s := collect(t)

	subjects := s.Subjects()
	require.Len(t, subjects, 3)

	gone := subjects[0]
	assert.Equal(t, "gone.txt", gone.Path)
	assert.Nil(t, gone.Blob)
	var kinds []model.WarningKind
	for _, w := range gone.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Equal(t, []model.WarningKind{model.WarnMalformedPatch, model.WarnFetchFailed}, kinds)

	main := subjects[1]
	require.NotNil(t, main.Overlay)
	assert.Len(t, main.Contributions, 2)

	results := s.Analyze(nil)
	assert.NotNil(t, results)
}
