// Package validation checks specs for structural and content problems.
//
// Validation is advisory: it reports issues and never rejects input.
package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/starford/specdesk/internal/depgraph"
	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/parser"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes.
const (
	CodeMissingStatus      = "missing-status"
	CodeInvalidStatus      = "invalid-status"
	CodeInvalidPriority    = "invalid-priority"
	CodeMissingTitle       = "missing-title"
	CodeExcessiveLength    = "excessive-length"
	CodeMissingOverview    = "missing-overview"
	CodeEmptyDependency    = "empty-dependency"
	CodeHighTokenCount     = "high-token-count"
	CodeModerateTokenCount = "moderate-token-count"
	CodeBrokenDependency   = "broken-dependency"
)

// Thresholds.
const (
	MaxLines           = 400
	HighTokenLimit     = 5000
	ModerateTokenLimit = 3500
)

// Issue is a single finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Line     *int     `json:"line,omitempty"`
}

// Result is the validation outcome for one spec.
type Result struct {
	SpecName string  `json:"spec_name"`
	Valid    bool    `json:"valid"`
	Issues   []Issue `json:"issues"`
}

// HasErrors reports whether any issue has error severity.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *Result) add(sev Severity, code, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Message: msg})
}

// Options tunes ValidateAll.
type Options struct {
	// StrictDependencies reports broken dependencies as errors, which
	// makes the referring spec invalid.
	StrictDependencies bool
}

// Validate checks one spec. Frontmatter is re-parsed from the raw content.
func Validate(spec *models.Spec) Result {
	res := Result{SpecName: spec.Name, Issues: []Issue{}}
	fm, body := parser.Parse(spec.Content)

	switch {
	case !fm.HasStatus:
		res.add(SeverityError, CodeMissingStatus, "Spec must have a status field in frontmatter")
	case !models.IsValidStatus(fm.Status):
		res.add(SeverityError, CodeInvalidStatus, fmt.Sprintf("Invalid status '%s'. Must be one of: %s",
			fm.Status, strings.Join(models.ValidStatuses, ", ")))
	}

	if fm.Priority != "" && !models.IsValidPriority(fm.Priority) {
		res.add(SeverityWarning, CodeInvalidPriority, fmt.Sprintf("Invalid priority '%s'. Recommended: %s",
			fm.Priority, strings.Join(models.ValidPriorities, ", ")))
	}

	if spec.Title == "" {
		res.add(SeverityWarning, CodeMissingTitle, "Spec should have a title (H1 heading)")
	}

	if n := CountLines(spec.Content); n > MaxLines {
		res.add(SeverityWarning, CodeExcessiveLength,
			fmt.Sprintf("Spec has %d lines, which exceeds recommended maximum of %d", n, MaxLines))
	}

	if !strings.Contains(body, "## Overview") && !strings.Contains(body, "## overview") {
		res.add(SeverityInfo, CodeMissingOverview, "Consider adding an ## Overview section")
	}

	for _, dep := range fm.DependsOn {
		if strings.TrimSpace(dep) == "" {
			res.add(SeverityWarning, CodeEmptyDependency, "Empty dependency in depends_on list")
		}
	}

	switch tokens := EstimateTokens(spec.Content); {
	case tokens > HighTokenLimit:
		res.add(SeverityWarning, CodeHighTokenCount,
			fmt.Sprintf("Estimated %d tokens. Consider splitting if over %d.", tokens, HighTokenLimit))
	case tokens > ModerateTokenLimit:
		res.add(SeverityInfo, CodeModerateTokenCount,
			fmt.Sprintf("Estimated %d tokens. Consider splitting if content grows.", tokens))
	}

	res.Valid = !res.HasErrors()
	return res
}

// ValidateAll validates every spec and then reports depends_on references
// that match no spec in the set. A broken dependency is a warning unless
// opts.StrictDependencies is set, and a warning never changes Valid.
func ValidateAll(specs []models.Spec, opts Options) []Result {
	results := make([]Result, len(specs))
	resolver := depgraph.NewResolver(specs, false)

	sev := SeverityWarning
	if opts.StrictDependencies {
		sev = SeverityError
	}

	for i := range specs {
		results[i] = Validate(&specs[i])

		fm, _ := parser.Parse(specs[i].Content)
		for _, dep := range fm.DependsOn {
			if strings.TrimSpace(dep) == "" {
				continue
			}
			if _, ok := resolver.Resolve(dep); ok {
				continue
			}
			results[i].add(sev, CodeBrokenDependency, fmt.Sprintf("Dependency '%s' not found", dep))
		}
		if sev == SeverityError {
			results[i].Valid = !results[i].HasErrors()
		}
	}
	return results
}

// EstimateTokens approximates the token count of text as
// ceil(words*1.3 + symbols*0.5), where symbols are characters that are
// neither alphabetic, numeric nor whitespace. Combining vowel signs count as
// alphabetic.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	symbols := 0
	for _, r := range text {
		if !isAlphanumeric(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}
	return int(math.Ceil(float64(words)*1.3 + float64(symbols)*0.5))
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Other_Alphabetic, r) || unicode.IsNumber(r)
}

// CountLines counts lines the way a line iterator does: a trailing newline
// does not start a new line.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
