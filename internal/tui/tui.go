// Package tui implements the Bubble Tea terminal browser for a repository
// snapshot and its pull requests.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
	"github.com/aezell/prview/internal/snapshot"
)

// view is one way of looking at the selected file.
type view struct {
	Label string
	PR    int // 0 for the base and interleaved views
	All   bool
}

// fileItem is one entry of the file list.
type fileItem struct {
	Path    string
	Content model.FileContent
	PRs     int
}

// Model is the top-level Bubble Tea model for prview browse.
type Model struct {
	snap     *snapshot.Snapshot
	findings map[string][]analysis.Finding
	style    string

	// UI state
	width  int
	height int

	// File list
	files       []fileItem
	fileIndex   int
	changedOnly bool

	// Views of the selected file: base, interleaved, then one per PR
	views     []view
	viewIndex int

	scrollOffset int
	viewHeight   int

	// Rendered lines for the current file and view
	lines []renderedLine

	showHelp bool
}

// New creates a new TUI model over a snapshot. results may be nil.
func New(snap *snapshot.Snapshot, results *analysis.Results, style string) Model {
	if style == "" {
		style = diff.DefaultStyle
	}
	m := Model{snap: snap, style: style, findings: map[string][]analysis.Finding{}}
	if results != nil {
		m.findings = results.ByFile()
	}
	m.buildFileList()
	m.selectFile(0)
	return m
}

func (m *Model) buildFileList() {
	m.files = nil
	seen := make(map[string]bool)
	for _, f := range m.snap.Files {
		prs := len(m.snap.Touching(f.Entry.Path))
		seen[f.Entry.Path] = true
		if m.changedOnly && prs == 0 {
			continue
		}
		m.files = append(m.files, fileItem{Path: f.Entry.Path, Content: f.Content, PRs: prs})
	}
	for _, p := range m.snap.ChangedPaths() {
		if seen[p] {
			continue
		}
		blob, _ := m.snap.Blob(p)
		m.files = append(m.files, fileItem{
			Path:    p,
			Content: model.FileContent{Kind: model.ContentText, Path: p, Blob: blob},
			PRs:     len(m.snap.Touching(p)),
		})
	}
}

func (m *Model) selectFile(i int) {
	m.fileIndex = i
	m.viewIndex = 0
	m.scrollOffset = 0
	m.views = nil
	if len(m.files) == 0 {
		m.lines = nil
		return
	}
	f := m.files[i]
	m.views = append(m.views, view{Label: "Base"})
	if f.Content.Kind == model.ContentText && f.PRs > 0 {
		m.views = append(m.views, view{Label: "All PRs (interleaved)", All: true})
		for _, pr := range m.snap.Touching(f.Path) {
			m.views = append(m.views, view{Label: pr.Source().Label(), PR: pr.Number})
		}
	}
	m.updateLines()
}

func (m *Model) updateLines() {
	if len(m.files) == 0 {
		m.lines = nil
		return
	}
	f := m.files[m.fileIndex]
	if f.Content.Kind != model.ContentText {
		m.lines = renderPlaceholder(f.Content.Placeholder())
		return
	}

	findings := m.findings[f.Path]
	v := m.views[m.viewIndex]
	switch {
	case v.All:
		subject := m.snap.Subject(f.Path)
		m.lines = renderAnnotated(f.Path, m.style, subject.Overlay, subject.Warnings, findings)
	case v.PR != 0:
		applied, ok := m.snap.Applied(f.Path, v.PR)
		if !ok {
			m.lines = renderPlaceholder("No patch from this pull request")
			return
		}
		warnings := applied.Warnings
		if pr, ok := m.snap.PR(v.PR); ok {
			warnings = append(pr.Warnings(), warnings...)
		}
		m.lines = renderAnnotated(f.Path, m.style, applied, warnings, prFindings(findings, v.PR))
	default:
		m.lines = renderBase(f.Path, m.style, f.Content.Blob, nil)
	}
}

func prFindings(findings []analysis.Finding, pr int) []analysis.Finding {
	var out []analysis.Finding
	for _, f := range findings {
		if f.PR == pr || f.PR == 0 {
			out = append(out, f)
		}
	}
	return out
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewHeight = m.height - 6 // status bar, borders, headers
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			if m.scrollOffset < len(m.lines)-1 {
				m.scrollOffset++
			}

		case key.Matches(msg, keys.Up):
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}

		case key.Matches(msg, keys.PageDown):
			m.scrollOffset = min(m.scrollOffset+max(m.viewHeight, 1), max(len(m.lines)-1, 0))

		case key.Matches(msg, keys.PageUp):
			m.scrollOffset = max(m.scrollOffset-max(m.viewHeight, 1), 0)

		case key.Matches(msg, keys.NextFile):
			if m.fileIndex < len(m.files)-1 {
				m.selectFile(m.fileIndex + 1)
			}

		case key.Matches(msg, keys.PrevFile):
			if m.fileIndex > 0 {
				m.selectFile(m.fileIndex - 1)
			}

		case key.Matches(msg, keys.NextView):
			if len(m.views) > 0 {
				m.viewIndex = (m.viewIndex + 1) % len(m.views)
				m.scrollOffset = 0
				m.updateLines()
			}

		case key.Matches(msg, keys.PrevView):
			if len(m.views) > 0 {
				m.viewIndex = (m.viewIndex - 1 + len(m.views)) % len(m.views)
				m.scrollOffset = 0
				m.updateLines()
			}

		case key.Matches(msg, keys.NextAdded):
			m.jumpToNextAdded()

		case key.Matches(msg, keys.PrevAdded):
			m.jumpToPrevAdded()

		case key.Matches(msg, keys.ChangedOnly):
			m.changedOnly = !m.changedOnly
			m.buildFileList()
			m.selectFile(0)

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}
	}

	return m, nil
}

// jumpToNextAdded moves to the start of the next run of added lines.
func (m *Model) jumpToNextAdded() {
	for i := m.scrollOffset + 1; i < len(m.lines); i++ {
		if m.lines[i].Added && !m.lines[i-1].Added {
			m.scrollOffset = i
			return
		}
	}
}

func (m *Model) jumpToPrevAdded() {
	for i := m.scrollOffset - 1; i >= 0; i-- {
		if m.lines[i].Added && (i == 0 || !m.lines[i-1].Added) {
			m.scrollOffset = i
			return
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	// Layout: file list on left, file view on right
	fileListWidth := m.fileListWidth()
	viewWidth := m.width - fileListWidth - 1 // -1 for gap

	fileList := m.renderFileList(fileListWidth, m.height-2)
	fileView := m.renderFileView(viewWidth, m.height-2)

	main := lipgloss.JoinHorizontal(lipgloss.Top, fileList, " ", fileView)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) fileListWidth() int {
	// Calculate based on longest path, capped
	maxLen := 20
	for _, f := range m.files {
		if len(f.Path) > maxLen {
			maxLen = len(f.Path)
		}
	}
	w := maxLen + 10 // padding + PR count
	if w > m.width/3 {
		w = m.width / 3
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderFileList(width, height int) string {
	var b strings.Builder

	innerHeight := height - 2 // borders
	// Keep the selection visible.
	start := 0
	if m.fileIndex >= innerHeight && innerHeight > 0 {
		start = m.fileIndex - innerHeight + 1
	}

	for i := start; i < len(m.files) && i < start+innerHeight; i++ {
		f := m.files[i]
		maxName := width - 10
		name := f.Path
		if maxName > 0 && len([]rune(name)) > maxName {
			r := []rune(name)
			name = "…" + string(r[len(r)-maxName+1:])
		}

		count := ""
		if f.PRs > 0 {
			count = fmt.Sprintf("%d PR", f.PRs)
		}
		line := fmt.Sprintf("%-*s %s", max(maxName, 0), name, count)

		b.WriteString(st.fileItem(f, i == m.fileIndex).Width(width - 4).Render(line))
		b.WriteByte('\n')
	}

	content := strings.TrimSuffix(b.String(), "\n")
	if len(m.files) == 0 {
		content = "No files"
	}
	return st.pane.Width(width).Height(innerHeight).Render(content)
}

func (m Model) renderFileView(width, height int) string {
	innerHeight := height - 2
	if len(m.files) == 0 {
		return st.pane.Width(width).Height(innerHeight).Render("Nothing to show")
	}

	f := m.files[m.fileIndex]
	innerWidth := width - 4 // borders + padding

	var b strings.Builder
	b.WriteString(st.header.Render(f.Path))
	b.WriteByte('\n')
	b.WriteString(st.viewLabel.Render(m.viewLabel()))
	b.WriteByte('\n')

	visibleLines := innerHeight - 3 // header and view label
	if visibleLines < 1 {
		visibleLines = 1
	}
	end := min(m.scrollOffset+visibleLines, len(m.lines))
	for i := m.scrollOffset; i < end; i++ {
		b.WriteString(styleLine(m.lines[i], innerWidth))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}

	return st.pane.Width(width).Height(innerHeight).Render(b.String())
}

func (m Model) viewLabel() string {
	if len(m.views) == 0 {
		return ""
	}
	return fmt.Sprintf("View %d/%d: %s", m.viewIndex+1, len(m.views), m.views[m.viewIndex].Label)
}

func (m Model) renderStatusBar() string {
	left := fmt.Sprintf(" %s/%s  File %d/%d", m.snap.Owner, m.snap.Repo, m.fileIndex+1, len(m.files))
	if len(m.lines) > 0 {
		left += fmt.Sprintf("  Line %d/%d", m.scrollOffset+1, len(m.lines))
	}

	filter := "all files"
	if m.changedOnly {
		filter = "changed only"
	}
	right := fmt.Sprintf("%d PRs  %s  ? help ", len(m.snap.PRs), filter)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return st.status.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	h := help.New()
	h.ShowAll = true
	h.Width = m.width
	h.Styles.FullKey = st.helpKey
	h.Styles.FullDesc = st.item
	h.Styles.FullSeparator = st.helpText

	return st.header.Render("prview browse: keyboard shortcuts") + "\n\n" +
		h.View(keys) + "\n\n" +
		st.helpText.Render("Press ? to close help")
}

// Run starts the TUI application.
func Run(snap *snapshot.Snapshot, results *analysis.Results, style string) error {
	p := tea.NewProgram(New(snap, results, style), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
