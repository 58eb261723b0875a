package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

// renderedLine is a single line of file output ready for display.
type renderedLine struct {
	Number  int // base line number; for added lines the anchor
	Added   bool
	Source  int // pull request number of an added line
	Content string

	// Syntax highlighting tokens (nil = no highlighting)
	Tokens []diff.Token

	// Annotations inserted between content lines
	IsFinding   bool
	FindingRisk model.RiskLevel
	IsWarning   bool
	IsNote      bool
}

// renderAnnotated produces renderedLines for an annotated file. Findings are
// placed after the base line they refer to; file-level findings and warnings
// come first.
func renderAnnotated(path, style string, af *model.AnnotatedFile, warnings []model.Warning, findings []analysis.Finding) []renderedLine {
	var lines []renderedLine

	for _, w := range warnings {
		lines = append(lines, renderedLine{IsWarning: true, Content: "⚠ " + w.String()})
	}

	byLine := make(map[int][]analysis.Finding)
	for _, f := range findings {
		if f.Line == 0 {
			lines = append(lines, findingLine(f))
			continue
		}
		byLine[f.Line] = append(byLine[f.Line], f)
	}

	var baseTexts, addedTexts []string
	for _, r := range af.Rows {
		if r.Kind == model.RowAdded {
			addedTexts = append(addedTexts, r.Text)
		} else {
			baseTexts = append(baseTexts, r.Text)
		}
	}
	baseHL := diff.HighlightLines(path, style, baseTexts)
	addedHL := diff.HighlightLines(path, style, addedTexts)

	bi, ai := 0, 0
	for _, r := range af.Rows {
		rl := renderedLine{Number: r.Number, Content: r.Text}
		if r.Kind == model.RowAdded {
			rl.Added = true
			if r.Source != nil {
				rl.Source = r.Source.ID
			}
			rl.Tokens = addedHL[ai].Tokens
			ai++
			lines = append(lines, rl)
			continue
		}
		rl.Tokens = baseHL[bi].Tokens
		bi++
		lines = append(lines, rl)
		for _, f := range byLine[r.Number] {
			lines = append(lines, findingLine(f))
		}
	}
	return lines
}

// renderBase produces renderedLines for the unmodified base file.
func renderBase(path, style string, blob *model.Blob, findings []analysis.Finding) []renderedLine {
	af := &model.AnnotatedFile{Path: path}
	for i, text := range blob.Lines {
		af.Rows = append(af.Rows, model.Row{Kind: model.RowBase, Number: i + 1, Text: text})
	}
	return renderAnnotated(path, style, af, nil, findings)
}

func renderPlaceholder(text string) []renderedLine {
	return []renderedLine{{IsNote: true, Content: text}}
}

func findingLine(f analysis.Finding) renderedLine {
	msg := fmt.Sprintf("  ▲ [%s] %s", f.Pass, f.Message)
	return renderedLine{IsFinding: true, FindingRisk: f.Risk, Content: msg}
}

// renderHighlightedContent renders line content with syntax tokens.
func renderHighlightedContent(rl renderedLine) string {
	if len(rl.Tokens) == 0 {
		return rl.Content
	}

	var b strings.Builder
	for _, tok := range rl.Tokens {
		if tok.Color != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tok.Color)).Render(tok.Text))
		} else {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// styleLine applies styling to a rendered line.
func styleLine(rl renderedLine, width int) string {
	switch {
	case rl.IsFinding:
		return st.risk(rl.FindingRisk).Render(truncate(rl.Content, width))
	case rl.IsWarning:
		return st.warning.Render(truncate(rl.Content, width))
	case rl.IsNote:
		return st.note.Render(truncate(rl.Content, width))
	}

	maxContent := width - 12
	if rl.Added {
		tag := st.sourceTag.Render(fmt.Sprintf("%5s", fmt.Sprintf("#%d", rl.Source)))
		content := st.added.Render("+" + truncate(rl.Content, maxContent))
		return tag + " " + content
	}

	num := st.lineNumber.Render(fmt.Sprintf("%4d", rl.Number))
	content := renderHighlightedContent(rl)
	if maxContent > 0 && lipgloss.Width(content) > maxContent {
		// Styled strings cannot be cut safely; fall back to plain text.
		content = truncate(rl.Content, maxContent)
	}
	return num + "  " + content
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
