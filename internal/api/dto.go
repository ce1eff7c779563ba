package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/registry"
	"github.com/starford/specdesk/internal/settings"
	"github.com/starford/specdesk/internal/specservice"
	specvalidation "github.com/starford/specdesk/internal/validation"
)

// AddProjectRequest is the request body for registering a project.
type AddProjectRequest struct {
	Path string `json:"path" example:"/home/me/work/api" validate:"required"`
}

// Validate validates the request.
func (r AddProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// DiscoverRequest is the request body for scanning a directory for projects.
type DiscoverRequest struct {
	Root  string `json:"root" example:"/home/me/work" validate:"required"`
	Limit int    `json:"limit" example:"20"`
}

// Validate validates the request.
func (r DiscoverRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Root, validation.Required),
		validation.Field(&r.Limit, validation.Min(0)),
	)
}

// FavoriteRequest toggles the favorite flag of a project.
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// StatusRequest is the request body for a status change.
type StatusRequest struct {
	Status string `json:"status" example:"in-progress" validate:"required"`
	Force  bool   `json:"force"`
}

// Validate validates the request. Unknown status values are rejected by
// the service with the list of allowed ones.
func (r StatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
	)
}

// SettingsPatch carries the settings fields to change; nil fields are kept.
type SettingsPatch struct {
	ActiveProjectID *string `json:"active_project_id,omitempty"`
	Theme           *string `json:"theme,omitempty" example:"dark"`
	AutoCheck       *bool   `json:"auto_check,omitempty"`
	Channel         *string `json:"channel,omitempty" example:"stable"`
}

func (p SettingsPatch) apply(s *settings.Settings) {
	if p.ActiveProjectID != nil {
		s.ActiveProjectID = *p.ActiveProjectID
	}
	if p.Theme != nil {
		s.Appearance.Theme = *p.Theme
	}
	if p.AutoCheck != nil {
		s.Updates.AutoCheck = *p.AutoCheck
	}
	if p.Channel != nil {
		s.Updates.Channel = *p.Channel
	}
}

// Project is a registered project (aliased from the registry).
type Project = registry.Project

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []Project `json:"projects" validate:"required"`
	ActiveID string    `json:"active_project_id,omitempty"`
}

// Candidate is a discovered project root.
type Candidate struct {
	Path       string `json:"path" validate:"required"`
	Registered bool   `json:"registered"`
}

// DiscoverResponse wraps discovered project roots.
type DiscoverResponse struct {
	Candidates []Candidate `json:"candidates" validate:"required"`
}

// SpecDetail is the full spec response type (aliased from the domain layer).
type SpecDetail = specservice.SpecDetail

// SpecListResponse wraps spec listings.
type SpecListResponse struct {
	Specs []models.LightweightSpec `json:"specs" validate:"required"`
	Total int                      `json:"total" example:"42" validate:"required"`
}

// TagsResponse wraps the tag list.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// ValidateAllResponse wraps project-wide validation results.
type ValidateAllResponse struct {
	Results []specvalidation.Result `json:"results" validate:"required"`
	Valid   bool                    `json:"valid"`
}

// MigrateResponse lists the specs moved out of archived/.
type MigrateResponse struct {
	Migrated []string `json:"migrated" validate:"required"`
}
