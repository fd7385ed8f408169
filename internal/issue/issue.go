package issue

import (
	"errors"
	"strings"
)

// Severity classifies how urgent an issue is.
type Severity string

const (
	// SeverityLow is the default severity.
	SeverityLow Severity = "low"
	// SeverityMedium marks issues that should be fixed soon.
	SeverityMedium Severity = "medium"
	// SeverityHigh marks issues that trigger isolation-branch creation.
	SeverityHigh Severity = "high"
)

// ErrMissingIssue is returned when intake receives no issue payload at all.
var ErrMissingIssue = errors.New("issue: payload is required")

// UnknownFile is the sentinel file path used when no file could be resolved.
const UnknownFile = "unknown"

// Issue is a single finding from an externally produced code critique.
//
// Read-only to the core. AffectedFiles may be empty, in which case the
// relevance resolver populates the target file at ticket creation.
type Issue struct {
	// Title is a short summary of the finding.
	Title string `json:"title"`

	// Description is the full finding text. May be empty.
	Description string `json:"description"`

	// Severity is the normalized severity (low, medium, high).
	Severity Severity `json:"severity"`

	// AffectedFiles are repository-relative paths the finding points at.
	AffectedFiles []string `json:"affected_files"`

	// FixSuggestion is optional free-text advice from the critique.
	FixSuggestion string `json:"fix_suggestion,omitempty"`
}

// Intake is the loosely-typed boundary payload for issue submission.
//
// Severity is free text, and the file list is accepted under both
// "affectedFiles" and the legacy "files" key. The file lists decode as
// []any so a mixed-type array does not fail the whole payload;
// Normalize keeps only the string elements.
type Intake struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Severity      string `json:"severity,omitempty"`
	AffectedFiles []any  `json:"affectedFiles,omitempty"`
	Files         []any  `json:"files,omitempty"`
	FixSuggestion string `json:"fixSuggestion,omitempty"`
}

// Normalize validates an intake payload and returns the internal Issue.
//
// Defaulting rules:
//   - severity: substring match, "critical"/"severe" map to high,
//     "moderate" maps to medium, unrecognized or missing maps to low
//   - affected files: "files" is accepted as an alias, non-string and
//     empty entries are dropped, and an empty result defaults to
//     ["unknown"]
//
// Only a nil payload is an error; every other malformed field has a safe
// default.
func Normalize(in *Intake) (*Issue, error) {
	if in == nil {
		return nil, ErrMissingIssue
	}

	files := stringElements(in.AffectedFiles)
	if len(files) == 0 {
		files = stringElements(in.Files)
	}
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f != "" {
			cleaned = append(cleaned, f)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{UnknownFile}
	}

	return &Issue{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Severity:      NormalizeSeverity(in.Severity),
		AffectedFiles: cleaned,
		FixSuggestion: strings.TrimSpace(in.FixSuggestion),
	}, nil
}

// stringElements filters a decoded JSON array down to its string
// elements.
func stringElements(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSeverity maps free-text severity to the closed Severity set.
func NormalizeSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case string(SeverityHigh):
		return SeverityHigh
	case string(SeverityMedium):
		return SeverityMedium
	case string(SeverityLow):
		return SeverityLow
	}
	if strings.Contains(s, "critical") || strings.Contains(s, "severe") {
		return SeverityHigh
	}
	if strings.Contains(s, "moderate") {
		return SeverityMedium
	}
	return SeverityLow
}

// Text returns the combined title and description used for relevance
// resolution and semantic search.
func (i *Issue) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + " " + i.Description
}
