package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

var overlayCmd = &cobra.Command{
	Use:   "overlay BASE [PATCH...]",
	Short: "Overlay local patch files onto a local base file",
	Long: `Show BASE with the lines added by every PATCH interleaved into it.
No network access is needed.

Each PATCH is [ID[:title]=]path. A PATCH without an ID takes the lowest ID
no other PATCH claims, in argument order. Additions anchored at the same base line are listed in
ascending ID order.

Examples:
  prview overlay setup.py 12=fix.patch 31:Bump\ deps=deps.patch
  prview overlay setup.py a.patch b.patch --pr 2
  prview overlay README.md --diff changes.diff --path README.md
  prview overlay api.go --rev main --range main...feat-a --range main...feat-b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOverlay,
}

func init() {
	overlayCmd.Flags().String("diff", "", "read a full git diff and overlay its hunks for BASE")
	overlayCmd.Flags().String("path", "", "file name to look up in --diff (default BASE)")
	overlayCmd.Flags().String("rev", "", "read BASE from this git revision instead of the working tree")
	overlayCmd.Flags().StringSlice("range", nil, "overlay the git diff of BASE for a commit range like main...feature (repeatable)")
	overlayCmd.Flags().Int("pr", 0, "show only the additions of this source ID")
	overlayCmd.Flags().StringP("format", "f", "text", "output format: text, json")
}

func runOverlay(cmd *cobra.Command, args []string) error {
	basePath := args[0]
	rev, _ := cmd.Flags().GetString("rev")
	data, err := readBase(basePath, rev)
	if err != nil {
		return err
	}
	blob := model.NewBlob(basePath, data)

	patches, err := readPatchArgs(args[1:])
	if err != nil {
		return err
	}

	ranges, _ := cmd.Flags().GetStringSlice("range")
	for _, r := range ranges {
		p, err := readRangePatch(r, basePath, nextSourceID(patches))
		if err != nil {
			return err
		}
		patches = append(patches, p)
	}

	diffFile, _ := cmd.Flags().GetString("diff")
	if diffFile != "" {
		lookup, _ := cmd.Flags().GetString("path")
		if lookup == "" {
			lookup = basePath
		}
		p, err := readDiffPatch(diffFile, lookup, nextSourceID(patches))
		if err != nil {
			return err
		}
		patches = append(patches, p)
	}

	if len(patches) == 0 {
		return fmt.Errorf("no patches given: pass PATCH arguments, --diff or --range")
	}

	var (
		annotated *model.AnnotatedFile
		view      int
	)
	if cmd.Flags().Changed("pr") {
		view, _ = cmd.Flags().GetInt("pr")
		p, ok := findPatch(patches, view)
		if !ok {
			return fmt.Errorf("no patch with ID %d", view)
		}
		annotated = diff.ApplyPatch(blob, p)
	} else {
		annotated = diff.InterleavePatches(blob, patches)
	}

	for _, w := range annotated.Warnings {
		logger.WithField("kind", w.Kind.String()).Warn(w.String())
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return writeOverlayJSON(cmd.OutOrStdout(), annotated, view)
	case "text":
		return writeOverlayText(cmd.OutOrStdout(), annotated, patches)
	default:
		return fmt.Errorf("unknown format %q: want text or json", format)
	}
}

// parsePatchArg splits "[ID[:title]=]path". fallbackID is used when the
// argument carries no ID prefix.
func parsePatchArg(arg string, fallbackID int) (*model.PatchSource, string, error) {
	prefix, path, found := strings.Cut(arg, "=")
	if !found {
		return &model.PatchSource{ID: fallbackID, Title: filepath.Base(arg)}, arg, nil
	}

	idText, title, _ := strings.Cut(prefix, ":")
	id, err := strconv.Atoi(idText)
	if err != nil {
		// "=" belongs to the file name.
		return &model.PatchSource{ID: fallbackID, Title: filepath.Base(arg)}, arg, nil
	}
	if id <= 0 {
		return nil, "", fmt.Errorf("patch %q: ID must be positive", arg)
	}
	if path == "" {
		return nil, "", fmt.Errorf("patch %q: missing path", arg)
	}
	if title == "" {
		title = filepath.Base(path)
	}
	return &model.PatchSource{ID: id, Title: title}, path, nil
}

// readPatchArgs reads PATCH arguments. Arguments without an ID take the
// lowest ID no other argument claims, in argument order.
func readPatchArgs(args []string) ([]diff.RawPatch, error) {
	type parsed struct {
		arg, path string
		src       *model.PatchSource
	}
	all := make([]parsed, 0, len(args))
	seen := make(map[int]string)
	for _, arg := range args {
		src, path, err := parsePatchArg(arg, 0)
		if err != nil {
			return nil, err
		}
		if src.ID != 0 {
			if prev, dup := seen[src.ID]; dup {
				return nil, fmt.Errorf("patches %q and %q share ID %d", prev, arg, src.ID)
			}
			seen[src.ID] = arg
		}
		all = append(all, parsed{arg: arg, path: path, src: src})
	}

	next := 1
	patches := make([]diff.RawPatch, 0, len(all))
	for _, p := range all {
		if p.src.ID == 0 {
			for seen[next] != "" {
				next++
			}
			p.src.ID = next
			seen[next] = p.arg
		}
		text, err := os.ReadFile(p.path)
		if err != nil {
			return nil, fmt.Errorf("reading patch: %w", err)
		}
		patches = append(patches, diff.RawPatch{Source: p.src, Text: string(text)})
	}
	return patches, nil
}

// readDiffPatch extracts the hunks for path from a full git diff and renders
// them back to patch text for the overlay engine.
func readDiffPatch(diffFile, path string, id int) (diff.RawPatch, error) {
	raw, err := os.ReadFile(diffFile)
	if err != nil {
		return diff.RawPatch{}, fmt.Errorf("reading diff: %w", err)
	}
	ds, err := diff.Parse(string(raw))
	if err != nil {
		return diff.RawPatch{}, err
	}
	hunks, ok := ds.Hunks(path)
	if !ok {
		return diff.RawPatch{}, fmt.Errorf("%s does not change %s", diffFile, path)
	}

	var b strings.Builder
	for _, h := range hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Kind.Marker())
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	src := &model.PatchSource{ID: id, Title: filepath.Base(diffFile)}
	return diff.RawPatch{Source: src, Text: b.String()}, nil
}

// readBase returns BASE from disk, or from git at rev when rev is set. With
// a revision, path is relative to the current directory inside the repository.
func readBase(path, rev string) ([]byte, error) {
	if rev == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading base: %w", err)
		}
		return data, nil
	}
	return diff.GitShow(".", rev, "./"+filepath.ToSlash(path))
}

// readRangePatch runs git diff for path over commitRange.
func readRangePatch(commitRange, path string, id int) (diff.RawPatch, error) {
	text, err := diff.GitDiffRange(".", commitRange, path, 3)
	if err != nil {
		return diff.RawPatch{}, err
	}
	src := &model.PatchSource{ID: id, Title: commitRange}
	if strings.TrimSpace(text) == "" {
		logger.WithField("range", commitRange).Warn("Range does not change the file")
	}
	return diff.RawPatch{Source: src, Text: text}, nil
}

func nextSourceID(patches []diff.RawPatch) int {
	next := 1
	for _, p := range patches {
		if p.Source.ID >= next {
			next = p.Source.ID + 1
		}
	}
	return next
}

func findPatch(patches []diff.RawPatch, id int) (diff.RawPatch, bool) {
	for _, p := range patches {
		if p.Source.ID == id {
			return p, true
		}
	}
	return diff.RawPatch{}, false
}

var (
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	addedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bd93f9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c"))
)

func writeOverlayText(w io.Writer, f *model.AnnotatedFile, patches []diff.RawPatch) error {
	for _, r := range f.Rows {
		if r.Kind == model.RowAdded {
			tag := fmt.Sprintf("+#%-4d", sourceIDOf(r.Source))
			fmt.Fprintf(w, "%s %s %s\n", sourceStyle.Render(tag), gutterStyle.Render("│"), addedStyle.Render(r.Text))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", gutterStyle.Render(fmt.Sprintf("%6d", r.Number)), gutterStyle.Render("│"), r.Text)
	}

	if len(f.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range f.Warnings {
			fmt.Fprintln(w, warnStyle.Render("warning: "+warn.String()))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sourceTable(f, patches))
	return nil
}

// sourceTable summarizes how many lines each source contributed.
func sourceTable(f *model.AnnotatedFile, patches []diff.RawPatch) string {
	added := make(map[int]int)
	for _, a := range f.Additions() {
		added[sourceIDOf(a.Source)]++
	}

	ordered := make([]*model.PatchSource, 0, len(patches))
	for _, p := range patches {
		ordered = append(ordered, p.Source)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	rows := make([][]string, 0, len(ordered))
	for _, src := range ordered {
		rows = append(rows, []string{strconv.Itoa(src.ID), src.Title, strconv.Itoa(added[src.ID])})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(gutterStyle).
		Headers("ID", "SOURCE", "ADDED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func sourceIDOf(s *model.PatchSource) int {
	if s == nil {
		return 0
	}
	return s.ID
}

type overlayRowJSON struct {
	Kind   string `json:"kind"`
	Number int    `json:"number"`
	Text   string `json:"text"`
	Source int    `json:"source,omitempty"`
}

type overlayJSON struct {
	Path     string           `json:"path"`
	View     int              `json:"view"`
	Rows     []overlayRowJSON `json:"rows"`
	Warnings []string         `json:"warnings"`
	Base     int              `json:"base_lines"`
	Added    int              `json:"added_lines"`
	Sources  int              `json:"sources"`
}

func writeOverlayJSON(w io.Writer, f *model.AnnotatedFile, view int) error {
	out := overlayJSON{
		Path:     f.Path,
		View:     view,
		Rows:     make([]overlayRowJSON, 0, len(f.Rows)),
		Warnings: make([]string, 0, len(f.Warnings)),
	}
	for _, r := range f.Rows {
		out.Rows = append(out.Rows, overlayRowJSON{
			Kind:   r.Kind.String(),
			Number: r.Number,
			Text:   r.Text,
			Source: sourceIDOf(r.Source),
		})
	}
	for _, warn := range f.Warnings {
		out.Warnings = append(out.Warnings, warn.String())
	}
	out.Base, out.Added, out.Sources = f.Stats()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
