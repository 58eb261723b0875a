package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aezell/prview/internal/model"
)

type palette struct {
	fg, dim, panel, border, addedBg lipgloss.Color
	red, orange, yellow, green      lipgloss.Color
	cyan, purple, pink              lipgloss.Color
}

// dracula matches the default chroma style so highlighted code and chrome agree.
var dracula = palette{
	fg:      "#f8f8f2",
	dim:     "#6272a4",
	panel:   "#343746",
	border:  "#44475a",
	addedBg: "#2f4a35",
	red:     "#ff5555",
	orange:  "#ffb86c",
	yellow:  "#f1fa8c",
	green:   "#50fa7b",
	cyan:    "#8be9fd",
	purple:  "#bd93f9",
	pink:    "#ff79c6",
}

type theme struct {
	pane       lipgloss.Style
	item       lipgloss.Style
	selected   lipgloss.Style
	changed    lipgloss.Style
	noText     lipgloss.Style
	lineNumber lipgloss.Style
	added      lipgloss.Style
	sourceTag  lipgloss.Style
	header     lipgloss.Style
	viewLabel  lipgloss.Style
	note       lipgloss.Style
	warning    lipgloss.Style
	status     lipgloss.Style
	high       lipgloss.Style
	medium     lipgloss.Style
	low        lipgloss.Style
	helpText   lipgloss.Style
	helpKey    lipgloss.Style
}

func newTheme(p palette) theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return theme{
		pane:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
		item:       fg(p.fg),
		selected:   fg(p.fg).Background(p.border).Bold(true),
		changed:    fg(p.green),
		noText:     fg(p.dim),
		lineNumber: fg(p.dim).Width(4).Align(lipgloss.Right),
		added:      fg(p.green).Background(p.addedBg),
		sourceTag:  fg(p.pink).Bold(true),
		header:     fg(p.cyan).Bold(true),
		viewLabel:  fg(p.purple).Bold(true).PaddingBottom(1),
		note:       fg(p.yellow).Italic(true),
		warning:    fg(p.orange),
		status:     fg(p.fg).Background(p.panel).Padding(0, 1),
		high:       fg(p.red).Bold(true),
		medium:     fg(p.yellow),
		low:        fg(p.cyan),
		helpText:   fg(p.dim),
		helpKey:    fg(p.yellow),
	}
}

var st = newTheme(dracula)

func (t theme) risk(r model.RiskLevel) lipgloss.Style {
	switch {
	case r >= model.RiskHigh:
		return t.high
	case r >= model.RiskMedium:
		return t.medium
	default:
		return t.low
	}
}

func (t theme) fileItem(f fileItem, selected bool) lipgloss.Style {
	switch {
	case selected:
		return t.selected
	case f.Content.Kind != model.ContentText:
		return t.noText
	case f.PRs > 0:
		return t.changed
	default:
		return t.item
	}
}
