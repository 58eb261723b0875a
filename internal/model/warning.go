package model

import "fmt"

// WarningKind names a recoverable problem found while building an overlay.
type WarningKind int

const (
	WarnMalformedPatch WarningKind = iota
	WarnOverlappingHunks
	WarnInconsistentCounts
	WarnContextMismatch
	WarnFetchFailed
	WarnTruncated
)

func (k WarningKind) String() string {
	switch k {
	case WarnMalformedPatch:
		return "malformed_patch"
	case WarnOverlappingHunks:
		return "overlapping_hunks"
	case WarnInconsistentCounts:
		return "inconsistent_hunk_counts"
	case WarnContextMismatch:
		return "context_mismatch"
	case WarnFetchFailed:
		return "fetch_failed"
	case WarnTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Warning records a problem that was worked around rather than failed on.
type Warning struct {
	Kind    WarningKind
	Source  *PatchSource
	Hunk    int // index into the source's hunks, -1 when not hunk specific
	Message string
}

func (w Warning) String() string {
	prefix := w.Kind.String()
	if w.Source != nil {
		prefix = fmt.Sprintf("%s #%d", prefix, w.Source.ID)
	}
	if w.Hunk >= 0 {
		prefix = fmt.Sprintf("%s hunk %d", prefix, w.Hunk+1)
	}
	return prefix + ": " + w.Message
}
