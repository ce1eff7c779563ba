package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/specdesk/internal/apperr"
	"github.com/starford/specdesk/internal/registry"
	"github.com/starford/specdesk/internal/settings"
)

// ListProjects handles GET /api/projects.
//
//	@Summary		List registered projects
//	@Tags			projects
//	@Produce		json
//	@Param			recent	query		bool	false	"Order by last access"
//	@Success		200		{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var (
		projects []Project
		err      error
	)
	if r.URL.Query().Get("recent") == "true" {
		projects, err = h.deps.Projects.Recent(r.Context(), 0)
	} else {
		projects, err = h.deps.Projects.All(r.Context())
	}
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{
		Projects: projects,
		ActiveID: h.deps.Settings.Get().ActiveProjectID,
	})
}

// AddProject handles POST /api/projects.
//
//	@Summary		Register a project directory
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddProjectRequest	true	"Project root"
//	@Success		201		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) AddProject(w http.ResponseWriter, r *http.Request) {
	var req AddProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.deps.Projects.Add(r.Context(), req.Path)
	if err != nil {
		writeError(w, "add project", err)
		return
	}
	h.projectsChanged()
	writeJSON(w, http.StatusCreated, p)
}

// DiscoverProjects handles POST /api/projects/discover.
func (h *Handler) DiscoverProjects(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	paths, err := registry.Discover(req.Root, req.Limit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out := DiscoverResponse{Candidates: make([]Candidate, 0, len(paths))}
	for _, p := range paths {
		registered := false
		if info, err := registry.Inspect(p); err == nil {
			_, err = h.deps.Projects.Find(r.Context(), info.ID)
			registered = err == nil
		}
		out.Candidates = append(out.Candidates, Candidate{Path: p, Registered: registered})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Projects.Find(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ActivateProject handles POST /api/projects/{projectID}/activate.
// The project becomes the most recent one and the active one in settings.
func (h *Handler) ActivateProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Projects.SetActive(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "activate project", err)
		return
	}
	if _, err := h.deps.Settings.Mutate(func(s *settings.Settings) { s.ActiveProjectID = p.ID }); err != nil {
		writeError(w, "activate project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetFavorite handles PUT /api/projects/{projectID}/favorite.
func (h *Handler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.deps.Projects.SetFavorite(r.Context(), projectID(r), req.Favorite)
	if err != nil {
		writeError(w, "set favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RemoveProject handles DELETE /api/projects/{projectID}.
// Only the registration is removed; files stay on disk.
func (h *Handler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if err := h.deps.Projects.Remove(r.Context(), id); err != nil {
		writeError(w, "remove project", err)
		return
	}
	if h.deps.Settings.Get().ActiveProjectID == id {
		_, err := h.deps.Settings.Mutate(func(s *settings.Settings) {
			if s.ActiveProjectID == id {
				s.ActiveProjectID = ""
			}
		})
		if err != nil {
			slog.Warn("clear active project failed", slog.String("project", id), slog.String("error", err.Error()))
		}
	}
	h.projectsChanged()
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Settings.Get())
}

// UpdateSettings handles PATCH /api/settings. Unknown theme or channel
// values fall back to their defaults.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.ActiveProjectID != nil && *patch.ActiveProjectID != "" {
		if _, err := h.deps.Projects.Find(r.Context(), *patch.ActiveProjectID); err != nil {
			if errors.Is(err, apperr.ErrProjectNotFound) {
				writeJSON(w, http.StatusBadRequest, errorBody("unknown project: "+*patch.ActiveProjectID))
				return
			}
			writeError(w, "update settings", err)
			return
		}
	}
	s, err := h.deps.Settings.Mutate(patch.apply)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
