package api

import (
	"net/http"
	"strings"

	"github.com/starford/specdesk/internal/specservice"
	"github.com/starford/specdesk/internal/sse"
)

// ListSpecs handles GET /api/projects/{projectID}/specs.
//
//	@Summary		List specs with optional status and text filters
//	@Tags			specs
//	@Produce		json
//	@Param			projectID	path		string	true	"Project id"
//	@Param			status		query		string	false	"Filter by status"	Enums(draft, planned, in-progress, complete, archived)
//	@Param			q			query		string	false	"Case-insensitive text filter"
//	@Success		200			{object}	SpecListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/specs [get]
func (h *Handler) ListSpecs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	specs, err := h.deps.Specs.ListSpecs(r.Context(), projectID(r), specservice.Filter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	})
	if err != nil {
		writeError(w, "list specs", err)
		return
	}
	writeJSON(w, http.StatusOK, SpecListResponse{Specs: specs, Total: len(specs)})
}

// GetSpec handles GET /api/projects/{projectID}/specs/{spec}.
// The ETag header carries the document checksum for If-Match.
//
//	@Summary		Get a single spec by number, slug or id
//	@Tags			specs
//	@Produce		json
//	@Param			projectID	path		string	true	"Project id"
//	@Param			spec		path		string	true	"Spec number, slug or id"
//	@Success		200			{object}	SpecDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/specs/{spec} [get]
func (h *Handler) GetSpec(w http.ResponseWriter, r *http.Request) {
	spec, err := h.deps.Specs.GetSpec(r.Context(), projectID(r), specParam(r))
	if err != nil {
		writeError(w, "get spec", err)
		return
	}
	w.Header().Set("ETag", `"`+spec.Checksum+`"`)
	writeJSON(w, http.StatusOK, spec)
}

// UpdateStatus handles PATCH /api/projects/{projectID}/specs/{spec}/status.
//
//	@Summary		Change a spec's status in place
//	@Tags			specs
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path		string			true	"Project id"
//	@Param			spec		path		string			true	"Spec number, slug or id"
//	@Param			If-Match	header		string			false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		StatusRequest	true	"New status"
//	@Success		200			{object}	SpecDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/specs/{spec}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	id := projectID(r)
	spec, err := h.deps.Specs.UpdateStatus(r.Context(), id, specParam(r), specservice.StatusUpdate{
		Status:  req.Status,
		Force:   req.Force,
		IfMatch: strings.Trim(r.Header.Get("If-Match"), `"`),
	})
	if err != nil {
		writeError(w, "update status", err)
		return
	}

	if h.deps.Events != nil {
		h.deps.Events.Publish(sse.Event{
			Type: sse.EventSpecUpdated,
			Data: map[string]string{
				"project_id": id,
				"spec":       spec.Name,
				"status":     spec.Status,
			},
		})
	}
	w.Header().Set("ETag", `"`+spec.Checksum+`"`)
	writeJSON(w, http.StatusOK, spec)
}

// SpecDependencies handles GET /api/projects/{projectID}/specs/{spec}/dependencies.
func (h *Handler) SpecDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := h.deps.Specs.SpecDependencies(r.Context(), projectID(r), specParam(r))
	if err != nil {
		writeError(w, "spec dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

// ValidateSpec handles GET /api/projects/{projectID}/specs/{spec}/validate.
func (h *Handler) ValidateSpec(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Specs.ValidateSpec(r.Context(), projectID(r), specParam(r))
	if err != nil {
		writeError(w, "validate spec", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateAll handles GET /api/projects/{projectID}/validate.
func (h *Handler) ValidateAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.deps.Specs.ValidateAll(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "validate all", err)
		return
	}
	valid := true
	for _, res := range results {
		valid = valid && res.Valid
	}
	writeJSON(w, http.StatusOK, ValidateAllResponse{Results: results, Valid: valid})
}

// Stats handles GET /api/projects/{projectID}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Specs.Stats(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Graph handles GET /api/projects/{projectID}/graph.
//
//	@Summary		Get the dependency graph
//	@Tags			graph
//	@Produce		json
//	@Param			projectID	path		string	true	"Project id"
//	@Success		200			{object}	models.DependencyGraph
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.Specs.Graph(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Tags handles GET /api/projects/{projectID}/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.deps.Specs.Tags(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// MigrateArchived handles POST /api/projects/{projectID}/migrate-archived.
func (h *Handler) MigrateArchived(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	moved, err := h.deps.Specs.MigrateArchived(r.Context(), id)
	if err != nil {
		writeError(w, "migrate archived", err)
		return
	}
	if len(moved) > 0 && h.deps.Events != nil {
		h.deps.Events.PublishSpecsChanged(id, "")
	}
	writeJSON(w, http.StatusOK, MigrateResponse{Migrated: moved})
}
