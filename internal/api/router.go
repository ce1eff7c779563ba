package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/specdesk/internal/registry"
	"github.com/starford/specdesk/internal/settings"
	"github.com/starford/specdesk/internal/specservice"
	"github.com/starford/specdesk/internal/sse"
)

// Deps are the collaborators the API routes call into.
type Deps struct {
	Specs    *specservice.Service
	Projects *registry.Registry
	Settings *settings.Store
	// Events, if non-nil, receives spec.updated events and is mounted at
	// GET /events inside the auth group.
	Events *sse.Broker
	// ProjectsChanged, if non-nil, is called after a project is added or
	// removed.
	ProjectsChanged func()
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(deps Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.AddProject)
	r.Post("/projects/discover", h.DiscoverProjects)

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Delete("/", h.RemoveProject)
		r.Post("/activate", h.ActivateProject)
		r.Put("/favorite", h.SetFavorite)

		// Specs.
		r.Get("/specs", h.ListSpecs)
		r.Get("/specs/{spec}", h.GetSpec)
		r.Patch("/specs/{spec}/status", h.UpdateStatus)
		r.Get("/specs/{spec}/dependencies", h.SpecDependencies)
		r.Get("/specs/{spec}/validate", h.ValidateSpec)

		// Project-wide views.
		r.Get("/stats", h.Stats)
		r.Get("/graph", h.Graph)
		r.Get("/tags", h.Tags)
		r.Get("/validate", h.ValidateAll)
		r.Post("/migrate-archived", h.MigrateArchived)
	})

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)

	if deps.Events != nil {
		r.Get("/events", deps.Events.ServeHTTP)
	}

	return r
}

// Handler holds API route handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

func projectID(r *http.Request) string {
	return chi.URLParam(r, "projectID")
}

func specParam(r *http.Request) string {
	return chi.URLParam(r, "spec")
}

func (h *Handler) projectsChanged() {
	if h.deps.ProjectsChanged != nil {
		h.deps.ProjectsChanged()
	}
}
