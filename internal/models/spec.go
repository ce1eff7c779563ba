// Package models defines the domain types for specdesk.
package models

import (
	"slices"
	"time"
)

// Spec statuses.
const (
	StatusDraft      = "draft"
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusComplete   = "complete"
	StatusArchived   = "archived"
)

// DefaultPriority is what graph nodes report when a spec declares none.
const DefaultPriority = "medium"

// ValidStatuses lists every status a spec may carry.
var ValidStatuses = []string{StatusDraft, StatusPlanned, StatusInProgress, StatusComplete, StatusArchived}

// ValidPriorities lists the recommended priority values.
var ValidPriorities = []string{"critical", "high", "medium", "low"}

// IsValidStatus reports whether s is one of ValidStatuses.
func IsValidStatus(s string) bool {
	return slices.Contains(ValidStatuses, s)
}

// IsValidPriority reports whether p is one of ValidPriorities.
func IsValidPriority(p string) bool {
	return slices.Contains(ValidPriorities, p)
}

// Spec is one specification document loaded from a spec directory.
// A Spec is a snapshot of a single load pass and is never mutated after
// the loader returns it.
type Spec struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Number      *int       `json:"number,omitempty"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Tags        []string   `json:"tags"`
	Assignee    string     `json:"assignee,omitempty"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"content_html,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FilePath    string     `json:"file_path"`
	ExternalURL string     `json:"external_url,omitempty"`
	LoadedAt    time.Time  `json:"loaded_at"`
	DependsOn   []string   `json:"depends_on"`
	RequiredBy  []string   `json:"required_by"`

	// Archived is true when the spec was loaded from the legacy archived/ directory.
	Archived     bool `json:"archived,omitempty"`
	SubSpecCount int  `json:"sub_spec_count"`
}

// LightweightSpec is a Spec without its document content, used for list views.
type LightweightSpec struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Number       *int       `json:"number,omitempty"`
	Name         string     `json:"name"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority,omitempty"`
	Tags         []string   `json:"tags"`
	Assignee     string     `json:"assignee,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FilePath     string     `json:"file_path"`
	ExternalURL  string     `json:"external_url,omitempty"`
	DependsOn    []string   `json:"depends_on"`
	RequiredBy   []string   `json:"required_by"`
	SubSpecCount int        `json:"sub_spec_count"`
}

// Lightweight projects s into a LightweightSpec.
func (s *Spec) Lightweight() LightweightSpec {
	return LightweightSpec{
		ID:           s.ID,
		ProjectID:    s.ProjectID,
		Number:       s.Number,
		Name:         s.Name,
		Title:        s.Title,
		Status:       s.Status,
		Priority:     s.Priority,
		Tags:         s.Tags,
		Assignee:     s.Assignee,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		CompletedAt:  s.CompletedAt,
		FilePath:     s.FilePath,
		ExternalURL:  s.ExternalURL,
		DependsOn:    s.DependsOn,
		RequiredBy:   s.RequiredBy,
		SubSpecCount: s.SubSpecCount,
	}
}

// Lightweights projects every spec in specs.
func Lightweights(specs []Spec) []LightweightSpec {
	out := make([]LightweightSpec, len(specs))
	for i := range specs {
		out[i] = specs[i].Lightweight()
	}
	return out
}
