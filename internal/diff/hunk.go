package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aezell/prview/internal/model"
)

// ErrMalformedPatch is returned when patch text contains no valid hunk header.
var ErrMalformedPatch = errors.New("malformed patch")

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

// ParseHunks parses the hunks of a single-file unified diff, such as the
// "patch" field GitHub returns for a pull request file. Anything before the
// first header is ignored. Declared counts are not checked against the body.
//
// Whitespace-only input has no hunks and is not an error: GitHub sends an
// empty patch for renames, mode changes and binary files, and those should
// show the base unchanged rather than a malformed-patch warning. Any other
// text without a header fails with ErrMalformedPatch.
func ParseHunks(text string) ([]model.Hunk, error) {
	text = model.NormalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var (
		hunks   []model.Hunk
		current *model.Hunk
	)
	for _, line := range model.SplitLines(text) {
		if strings.HasPrefix(line, "@@") {
			h, ok := parseHunkHeader(line)
			if !ok {
				continue
			}
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &h
			continue
		}
		if current == nil {
			continue
		}
		if hl, ok := classifyLine(line); ok {
			current.Lines = append(current.Lines, hl)
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}

	if len(hunks) == 0 {
		return nil, fmt.Errorf("%w: no valid hunk header", ErrMalformedPatch)
	}
	return hunks, nil
}

func parseHunkHeader(line string) (model.Hunk, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return model.Hunk{}, false
	}
	var h model.Hunk
	var err error
	if h.OldStart, err = strconv.Atoi(m[1]); err != nil {
		return model.Hunk{}, false
	}
	if h.OldCount, err = parseCount(m[2]); err != nil {
		return model.Hunk{}, false
	}
	if h.NewStart, err = strconv.Atoi(m[3]); err != nil {
		return model.Hunk{}, false
	}
	if h.NewCount, err = parseCount(m[4]); err != nil {
		return model.Hunk{}, false
	}
	h.Section = strings.TrimSpace(m[5])
	return h, true
}

// parseCount applies the unified diff rule that an omitted count means 1.
func parseCount(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	return strconv.Atoi(s)
}

func classifyLine(line string) (model.HunkLine, bool) {
	if line == "" {
		return model.HunkLine{Kind: model.LineContext}, true
	}
	switch line[0] {
	case '+':
		return model.HunkLine{Kind: model.LineAdded, Text: line[1:]}, true
	case '-':
		return model.HunkLine{Kind: model.LineRemoved, Text: line[1:]}, true
	case ' ':
		return model.HunkLine{Kind: model.LineContext, Text: line[1:]}, true
	case '\\':
		// "\ No newline at end of file"
		return model.HunkLine{}, false
	default:
		return model.HunkLine{Kind: model.LineContext, Text: line}, true
	}
}

// AddedLines returns the text of every added line in the patch, in order.
// Malformed patches yield nil.
func AddedLines(text string) []string {
	hunks, err := ParseHunks(text)
	if err != nil {
		return nil
	}
	var out []string
	for _, h := range hunks {
		out = append(out, h.Added()...)
	}
	return out
}
