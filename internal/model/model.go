// Package model defines the core data types shared across prview.
package model

import (
	"fmt"
	"strings"
)

// RiskLevel ranks how much an analysis finding should worry a reviewer.
// Levels are ordered so findings can be filtered with >=.
type RiskLevel int

const (
	RiskInfo RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"info", "low", "medium", "high", "critical"}

func (r RiskLevel) String() string {
	if r < 0 || int(r) >= len(riskNames) {
		return "unknown"
	}
	return riskNames[r]
}

// ParseRisk maps a name like "medium" back to its level.
func ParseRisk(name string) (RiskLevel, error) {
	for i, n := range riskNames {
		if strings.EqualFold(n, name) {
			return RiskLevel(i), nil
		}
	}
	return RiskInfo, fmt.Errorf("unknown risk level %q (want one of %s)", name, strings.Join(riskNames[:], ", "))
}

// Severity is how a finding is presented: informational, a warning or an error.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// LineRange identifies an inclusive range of base lines.
// An empty range (an insertion point) has End == Start-1.
type LineRange struct {
	Start int
	End   int
}

// Empty reports whether the range covers no lines.
func (r LineRange) Empty() bool {
	return r.End < r.Start
}

// Overlaps reports whether both ranges are non-empty and share a line.
func (r LineRange) Overlaps(o LineRange) bool {
	return !r.Empty() && !o.Empty() && max(r.Start, o.Start) <= min(r.End, o.End)
}
