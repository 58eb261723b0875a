package diff

import (
	"reflect"
	"testing"

	"github.com/aezell/prview/internal/model"
)

func baseABC() *model.Blob {
	return model.NewBlob("f.txt", []byte("a\nb\nc\n"))
}

func mustHunks(t *testing.T, text string) []model.Hunk {
	t.Helper()
	hunks, err := ParseHunks(text)
	if err != nil {
		t.Fatalf("ParseHunks(%q): %v", text, err)
	}
	return hunks
}

func rowStrings(f *model.AnnotatedFile) []string {
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.String()
	}
	return out
}

func warningKinds(f *model.AnnotatedFile) []model.WarningKind {
	var out []model.WarningKind
	for _, w := range f.Warnings {
		out = append(out, w.Kind)
	}
	return out
}

func TestInterleaveSingleAddition(t *testing.T) {
	src := &model.PatchSource{ID: 1}
	got := Interleave(baseABC(), []Contribution{
		{Source: src, Hunks: mustHunks(t, "@@ -2,1 +2,2 @@\n b\n+x\n")},
	})

	want := []string{`base:"a"`, `base:"b"`, `added:"x" by 1`, `base:"c"`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", got.Warnings)
	}
	add := got.Additions()
	if len(add) != 1 || add[0].Anchor != 2 || add[0].Source != src {
		t.Errorf("additions = %+v", add)
	}
}

func TestInterleaveSameAnchorOrderedBySource(t *testing.T) {
	later := Contribution{Source: &model.PatchSource{ID: 9}, Hunks: mustHunks(t, "@@ -1,1 +1,2 @@\n a\n+nine\n")}
	earlier := Contribution{Source: &model.PatchSource{ID: 5}, Hunks: mustHunks(t, "@@ -1,1 +1,3 @@\n a\n+five\n+five-2\n")}

	want := []string{
		`base:"a"`,
		`added:"five" by 5`,
		`added:"five-2" by 5`,
		`added:"nine" by 9`,
		`base:"b"`,
		`base:"c"`,
	}

	forward := Interleave(baseABC(), []Contribution{later, earlier})
	reverse := Interleave(baseABC(), []Contribution{earlier, later})
	if !reflect.DeepEqual(rowStrings(forward), want) {
		t.Errorf("rows = %q, want %q", rowStrings(forward), want)
	}
	if !reflect.DeepEqual(rowStrings(forward), rowStrings(reverse)) {
		t.Error("interleave result depends on contribution order")
	}
}

func TestInterleaveBaseLinesKept(t *testing.T) {
	blob := model.NewBlob("f.txt", []byte("a\nb\nc\nd\n"))
	got := Interleave(blob, []Contribution{
		{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -2,2 +2,1 @@\n-b\n-c\n+bc\n")},
		{Source: &model.PatchSource{ID: 2}, Hunks: mustHunks(t, "@@ -4,1 +4,2 @@\n d\n+e\n")},
	})

	var base []string
	for _, r := range got.Rows {
		if r.Kind == model.RowBase {
			base = append(base, r.Text)
		}
	}
	if !reflect.DeepEqual(base, blob.Lines) {
		t.Errorf("base rows = %q, want %q", base, blob.Lines)
	}
	want := []string{`base:"a"`, `base:"b"`, `base:"c"`, `added:"bc" by 1`, `base:"d"`, `added:"e" by 2`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
}

func TestInterleaveDisjointPatchesCommute(t *testing.T) {
	first := Contribution{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -1,1 +1,2 @@\n q\n+x\n")}
	second := Contribution{Source: &model.PatchSource{ID: 2}, Hunks: mustHunks(t, "@@ -3,1 +3,2 @@\n c\n+z\n")}

	forward := Interleave(baseABC(), []Contribution{first, second})
	reverse := Interleave(baseABC(), []Contribution{second, first})
	if !reflect.DeepEqual(rowStrings(forward), rowStrings(reverse)) {
		t.Errorf("rows depend on order:\n%q\n%q", rowStrings(forward), rowStrings(reverse))
	}
	if !reflect.DeepEqual(forward.Warnings, reverse.Warnings) {
		t.Errorf("warnings depend on order:\n%v\n%v", forward.Warnings, reverse.Warnings)
	}
	if len(forward.Warnings) != 1 {
		t.Errorf("expected the context mismatch warning, got %v", forward.Warnings)
	}

	raw := []RawPatch{
		{Source: &model.PatchSource{ID: 1}, Text: "@@ -1,1 +1,2 @@\n q\n+x\n"},
		{Source: &model.PatchSource{ID: 2}, Text: "@@ -3,1 +3,2 @@\n c\n+z\n"},
		{Source: &model.PatchSource{ID: 3}, Text: "garbage"},
		{Source: &model.PatchSource{ID: 4}, Text: "more garbage"},
	}
	reversed := make([]RawPatch, len(raw))
	for i, p := range raw {
		reversed[len(raw)-1-i] = p
	}
	pf := InterleavePatches(baseABC(), raw)
	pr := InterleavePatches(baseABC(), reversed)
	if !reflect.DeepEqual(rowStrings(pf), rowStrings(pr)) {
		t.Errorf("patch rows depend on order:\n%q\n%q", rowStrings(pf), rowStrings(pr))
	}
	if !reflect.DeepEqual(pf.Warnings, pr.Warnings) {
		t.Errorf("patch warnings depend on order:\n%v\n%v", pf.Warnings, pr.Warnings)
	}
	if !reflect.DeepEqual(rowStrings(pf), rowStrings(forward)) {
		t.Errorf("InterleavePatches rows %q, Interleave rows %q", rowStrings(pf), rowStrings(forward))
	}
}

func TestParsePatches(t *testing.T) {
	contribs, warnings := ParsePatches([]RawPatch{
		{Source: &model.PatchSource{ID: 7}, Text: "@@ -1 +1,2 @@\n a\n+b\n"},
		{Source: &model.PatchSource{ID: 8}, Text: "no header here"},
	})
	if len(contribs) != 1 || contribs[0].Source.ID != 7 || len(contribs[0].Hunks) != 1 {
		t.Errorf("contributions = %+v", contribs)
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnMalformedPatch || warnings[0].Source.ID != 8 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestInterleaveNoContributions(t *testing.T) {
	blob := baseABC()
	for _, contribs := range [][]Contribution{
		nil,
		{{Source: &model.PatchSource{ID: 3}}},
	} {
		got := Interleave(blob, contribs)
		if !reflect.DeepEqual(got.Plain(), blob.Lines) {
			t.Errorf("Plain = %q, want base", got.Plain())
		}
		if len(got.Warnings) != 0 {
			t.Errorf("unexpected warnings: %v", got.Warnings)
		}
	}
}

func TestInterleaveAnchorZero(t *testing.T) {
	got := Interleave(baseABC(), []Contribution{
		{Source: &model.PatchSource{ID: 4}, Hunks: mustHunks(t, "@@ -0,0 +1 @@\n+top\n")},
	})
	want := []string{`added:"top" by 4`, `base:"a"`, `base:"b"`, `base:"c"`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
}

func TestInterleaveNewFile(t *testing.T) {
	empty := model.NewBlob("new.txt", nil)
	got := Interleave(empty, []Contribution{
		{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -0,0 +1,2 @@\n+p\n+q\n")},
	})
	want := []string{`added:"p" by 1`, `added:"q" by 1`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
}

func TestInterleavePatchesIsolatesMalformed(t *testing.T) {
	got := InterleavePatches(baseABC(), []RawPatch{
		{Source: &model.PatchSource{ID: 1}, Text: "this is not a diff"},
		{Source: &model.PatchSource{ID: 2}, Text: "@@ -3,1 +3,2 @@\n c\n+z\n"},
	})

	want := []string{`base:"a"`, `base:"b"`, `base:"c"`, `added:"z" by 2`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", got.Warnings)
	}
	w := got.Warnings[0]
	if w.Kind != model.WarnMalformedPatch || w.Source.ID != 1 || w.Hunk != -1 {
		t.Errorf("unexpected warning %v", w)
	}
}

func TestInterleaveOverlappingHunksDropped(t *testing.T) {
	src := &model.PatchSource{ID: 1}
	got := Interleave(baseABC(), []Contribution{{Source: src, Hunks: mustHunks(t,
		"@@ -1,2 +1,3 @@\n a\n+x\n b\n"+
			"@@ -2,2 +3,3 @@\n b\n+y\n c\n")}})

	want := []string{`base:"a"`, `added:"x" by 1`, `base:"b"`, `base:"c"`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if kinds := warningKinds(got); !reflect.DeepEqual(kinds, []model.WarningKind{model.WarnOverlappingHunks}) {
		t.Fatalf("warnings = %v", got.Warnings)
	}
	if got.Warnings[0].Hunk != 1 {
		t.Errorf("expected second hunk to be dropped, got index %d", got.Warnings[0].Hunk)
	}
}

func TestInterleaveInconsistentCounts(t *testing.T) {
	got := Interleave(baseABC(), []Contribution{
		{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -1,5 +1,6 @@\n a\n+x\n")},
	})
	want := []string{`base:"a"`, `added:"x" by 1`, `base:"b"`, `base:"c"`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if kinds := warningKinds(got); !reflect.DeepEqual(kinds, []model.WarningKind{model.WarnInconsistentCounts}) {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestInterleaveContextMismatch(t *testing.T) {
	got := Interleave(baseABC(), []Contribution{
		{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -2,1 +2,2 @@\n q\n+x\n")},
	})
	want := []string{`base:"a"`, `base:"b"`, `added:"x" by 1`, `base:"c"`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if kinds := warningKinds(got); !reflect.DeepEqual(kinds, []model.WarningKind{model.WarnContextMismatch}) {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestInterleaveStartPastEnd(t *testing.T) {
	got := Interleave(baseABC(), []Contribution{
		{Source: &model.PatchSource{ID: 1}, Hunks: mustHunks(t, "@@ -10,0 +11 @@\n+z\n")},
	})
	want := []string{`base:"a"`, `base:"b"`, `base:"c"`, `added:"z" by 1`}
	if !reflect.DeepEqual(rowStrings(got), want) {
		t.Errorf("rows = %q, want %q", rowStrings(got), want)
	}
	if kinds := warningKinds(got); !reflect.DeepEqual(kinds, []model.WarningKind{model.WarnContextMismatch}) {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestApplyRoundTrip(t *testing.T) {
	blob := model.NewBlob("f.txt", []byte("a\nb\nc\nd\n"))
	src := &model.PatchSource{ID: 7}
	got := Apply(blob, src, mustHunks(t, "@@ -1,4 +1,5 @@\n a\n-b\n+B\n+B2\n c\n d\n"))

	want := []string{"a", "B", "B2", "c", "d"}
	if !reflect.DeepEqual(got.Plain(), want) {
		t.Errorf("Plain = %q, want %q", got.Plain(), want)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", got.Warnings)
	}
	for _, r := range got.Rows {
		if r.Kind == model.RowAdded && r.Source != src {
			t.Errorf("added row %q not tagged with source", r.Text)
		}
	}
}

func TestApplyNoHunks(t *testing.T) {
	blob := baseABC()
	got := Apply(blob, nil, nil)
	if !reflect.DeepEqual(got.Plain(), blob.Lines) {
		t.Errorf("Plain = %q, want base", got.Plain())
	}
}

func TestApplyPatchMalformed(t *testing.T) {
	blob := baseABC()
	got := ApplyPatch(blob, RawPatch{Source: &model.PatchSource{ID: 2}, Text: "garbage"})
	if !reflect.DeepEqual(got.Plain(), blob.Lines) {
		t.Errorf("Plain = %q, want base", got.Plain())
	}
	if kinds := warningKinds(got); !reflect.DeepEqual(kinds, []model.WarningKind{model.WarnMalformedPatch}) {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestApplyMatchesInterleaveAdditions(t *testing.T) {
	blob := model.NewBlob("f.txt", []byte("one\ntwo\nthree\nfour\nfive\n"))
	src := &model.PatchSource{ID: 3}
	hunks := mustHunks(t, "@@ -1,2 +1,3 @@\n one\n+one-b\n two\n@@ -4,2 +5,2 @@\n four\n-five\n+FIVE\n")

	applied := Apply(blob, src, hunks).Additions()
	interleaved := Interleave(blob, []Contribution{{Source: src, Hunks: hunks}}).Additions()
	if !reflect.DeepEqual(applied, interleaved) {
		t.Errorf("Apply additions %+v differ from Interleave additions %+v", applied, interleaved)
	}
}
