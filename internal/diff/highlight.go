package diff

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "dracula"

// Token is a run of text sharing one color.
type Token struct {
	Text  string
	Color string // "#rrggbb", empty for the default foreground
}

// HighlightedLine is one source line split into colored tokens.
type HighlightedLine struct {
	Tokens []Token
}

// Plain returns the line text without colors.
func (hl HighlightedLine) Plain() string {
	var b strings.Builder
	for _, t := range hl.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// HighlightLines tokenizes lines as the language of filename and returns
// exactly one HighlightedLine per input line. Unknown languages and lexer
// failures yield uncolored lines.
func HighlightLines(filename, styleName string, lines []string) []HighlightedLine {
	out := make([]HighlightedLine, len(lines))
	for i, l := range lines {
		out[i] = HighlightedLine{Tokens: []Token{{Text: l}}}
	}

	lexer := lexerFor(filename)
	if lexer == nil || len(lines) == 0 {
		return out
	}
	it, err := lexer.Tokenise(nil, strings.Join(lines, "\n"))
	if err != nil {
		return out
	}

	style := styleFor(styleName)
	colors := make(map[chroma.TokenType]string)
	for i, toks := range chroma.SplitTokensIntoLines(it.Tokens()) {
		if i >= len(out) {
			break
		}
		hl := HighlightedLine{}
		for _, t := range toks {
			text := strings.TrimSuffix(t.Value, "\n")
			if text == "" {
				continue
			}
			c, ok := colors[t.Type]
			if !ok {
				if e := style.Get(t.Type); e.Colour.IsSet() {
					c = e.Colour.String()
				}
				colors[t.Type] = c
			}
			hl.Tokens = append(hl.Tokens, Token{Text: text, Color: c})
		}
		if len(hl.Tokens) == 0 {
			hl.Tokens = []Token{{}}
		}
		out[i] = hl
	}
	return out
}

func lexerFor(filename string) chroma.Lexer {
	l := lexers.Match(filename)
	if l == nil {
		if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
			l = lexers.Get(ext)
		}
	}
	if l == nil {
		return nil
	}
	return chroma.Coalesce(l)
}

func styleFor(name string) *chroma.Style {
	if name == "" {
		name = DefaultStyle
	}
	if s := styles.Get(name); s != nil {
		return s
	}
	return styles.Fallback
}
