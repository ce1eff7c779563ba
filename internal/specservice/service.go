// Package specservice exposes the spec engine per project: loading,
// queries, graph, stats, validation and the status write path.
package specservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/specdesk/internal/apperr"
	"github.com/starford/specdesk/internal/checksum"
	"github.com/starford/specdesk/internal/depgraph"
	"github.com/starford/specdesk/internal/loader"
	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/parser"
	"github.com/starford/specdesk/internal/stats"
	"github.com/starford/specdesk/internal/storage"
	"github.com/starford/specdesk/internal/validation"
)

// Projects resolves a project id to the specs directory it owns.
type Projects interface {
	SpecsDir(ctx context.Context, projectID string) (string, error)
}

// Dir serves a single specs directory for every project id.
type Dir string

// SpecsDir implements Projects.
func (d Dir) SpecsDir(context.Context, string) (string, error) { return string(d), nil }

// Options configures a Service.
type Options struct {
	StrictDependencies bool
}

// SpecDetail is a spec plus the checksum of its main document.
type SpecDetail struct {
	models.Spec
	Checksum string `json:"checksum"`
}

// Filter narrows ListSpecs.
type Filter struct {
	Status string
	Query  string
}

// StatusUpdate is a request to change a spec's status.
type StatusUpdate struct {
	Status string
	Force  bool
	// IfMatch, when set, must equal the current document checksum.
	IfMatch string
}

// Service runs engine operations against registered projects.
type Service struct {
	projects Projects
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new spec service.
func NewService(projects Projects, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		projects: projects,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) loader(ctx context.Context, projectID string) (*loader.Loader, error) {
	dir, err := s.projects.SpecsDir(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return loader.New(dir, projectID, s.logger), nil
}

func (s *Service) load(ctx context.Context, projectID string) ([]models.Spec, error) {
	l, err := s.loader(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return l.LoadAll(), nil
}

func (s *Service) find(ctx context.Context, projectID, identifier string) (models.Spec, []models.Spec, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return models.Spec{}, nil, err
	}
	spec, ok := loader.Find(specs, identifier)
	if !ok {
		return models.Spec{}, nil, fmt.Errorf("%w: %s", apperr.ErrSpecNotFound, identifier)
	}
	return spec, specs, nil
}

// ListSpecs returns the lightweight form of every spec matching f.
func (s *Service) ListSpecs(ctx context.Context, projectID string, f Filter) ([]models.LightweightSpec, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if f.Status != "" {
		specs = loader.FilterStatus(specs, f.Status)
	}
	if f.Query != "" {
		specs = loader.FilterQuery(specs, f.Query)
	}
	return models.Lightweights(specs), nil
}

// LoadAll returns every spec with its content.
func (s *Service) LoadAll(ctx context.Context, projectID string) ([]models.Spec, error) {
	return s.load(ctx, projectID)
}

// GetSpec looks a spec up by number, slug, slug prefix or id.
func (s *Service) GetSpec(ctx context.Context, projectID, identifier string) (*SpecDetail, error) {
	spec, _, err := s.find(ctx, projectID, identifier)
	if err != nil {
		return nil, err
	}
	return &SpecDetail{Spec: spec, Checksum: checksum.Sum([]byte(spec.Content))}, nil
}

// Search returns the specs matching query, case-insensitively.
func (s *Service) Search(ctx context.Context, projectID, query string) ([]models.LightweightSpec, error) {
	return s.ListSpecs(ctx, projectID, Filter{Query: query})
}

// Tags returns every distinct tag in the project.
func (s *Service) Tags(ctx context.Context, projectID string) ([]string, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return loader.Tags(specs), nil
}

// Stats computes aggregate statistics for the project.
func (s *Service) Stats(ctx context.Context, projectID string) (stats.Result, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return stats.Result{}, err
	}
	return stats.Calculate(specs), nil
}

// Graph builds the dependency graph for the project.
func (s *Service) Graph(ctx context.Context, projectID string) (models.DependencyGraph, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return models.DependencyGraph{}, err
	}
	return depgraph.Build(specs), nil
}

// SpecDependencies returns both dependency directions of one spec.
func (s *Service) SpecDependencies(ctx context.Context, projectID, identifier string) (models.SpecDependencies, error) {
	spec, specs, err := s.find(ctx, projectID, identifier)
	if err != nil {
		return models.SpecDependencies{}, err
	}
	return depgraph.SpecDependencies(&spec, specs), nil
}

// ValidateSpec validates a single spec.
func (s *Service) ValidateSpec(ctx context.Context, projectID, identifier string) (validation.Result, error) {
	spec, _, err := s.find(ctx, projectID, identifier)
	if err != nil {
		return validation.Result{}, err
	}
	return validation.Validate(&spec), nil
}

// ValidateAll validates every spec in the project, including the
// cross-spec dependency check.
func (s *Service) ValidateAll(ctx context.Context, projectID string) ([]validation.Result, error) {
	specs, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return validation.ValidateAll(specs, validation.Options{StrictDependencies: s.opts.StrictDependencies}), nil
}

// UpdateStatus rewrites a spec's status in place and returns the reloaded
// spec. Moving a draft straight to in-progress or complete requires Force.
func (s *Service) UpdateStatus(ctx context.Context, projectID, identifier string, req StatusUpdate) (*SpecDetail, error) {
	if !models.IsValidStatus(req.Status) {
		return nil, fmt.Errorf("%w: %q, must be one of: %s",
			apperr.ErrInvalidStatus, req.Status, strings.Join(models.ValidStatuses, ", "))
	}

	unlock := s.lock(projectID)
	defer unlock()

	spec, _, err := s.find(ctx, projectID, identifier)
	if err != nil {
		return nil, err
	}
	if spec.Status == models.StatusDraft && !req.Force &&
		(req.Status == models.StatusInProgress || req.Status == models.StatusComplete) {
		return nil, apperr.ErrSkippedStage
	}

	l, err := s.loader(ctx, projectID)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(l.Root())
	if err != nil {
		return nil, fmt.Errorf("specservice: open specs dir: %w", err)
	}

	rel := documentPath(&spec)
	data, err := store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrSpecNotFound, identifier)
		}
		return nil, fmt.Errorf("specservice: read %s: %w", rel, err)
	}
	if req.IfMatch != "" && !checksum.Matches(data, req.IfMatch) {
		return nil, apperr.ErrConflict
	}

	content, err := s.applyStatus(string(data), req.Status)
	if err != nil {
		return nil, fmt.Errorf("specservice: rewrite %s: %w", rel, err)
	}
	if err := store.Write(rel, []byte(content)); err != nil {
		return nil, fmt.Errorf("specservice: write %s: %w", rel, err)
	}
	s.logger.Info("status updated",
		slog.String("project", projectID),
		slog.String("spec", spec.Name),
		slog.String("from", spec.Status),
		slog.String("to", req.Status))

	fresh, ok := loader.Find(l.LoadAll(), spec.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrSpecNotFound, spec.Name)
	}
	return &SpecDetail{Spec: fresh, Checksum: checksum.Sum([]byte(fresh.Content))}, nil
}

func (s *Service) applyStatus(content, status string) (string, error) {
	stamp := "'" + s.now().UTC().Format(time.RFC3339) + "'"

	content, err := parser.SetField(content, "status", status)
	if err != nil {
		return "", err
	}
	content, err = parser.SetField(content, pickKey(content, "updatedAt", "updated_at"), stamp)
	if err != nil {
		return "", err
	}
	if status == models.StatusComplete {
		content, err = parser.SetField(content, pickKey(content, "completedAt", "completed_at"), stamp)
		if err != nil {
			return "", err
		}
	}
	return content, nil
}

// pickKey keeps whichever spelling the document already uses.
func pickKey(content, camel, snake string) string {
	if parser.HasField(content, camel) {
		return camel
	}
	return snake
}

// documentPath is the main document path relative to the specs root.
func documentPath(spec *models.Spec) string {
	if spec.Archived {
		return path.Join(loader.ArchivedDir, spec.Name, loader.MainDocument)
	}
	return path.Join(spec.Name, loader.MainDocument)
}

// MigrateArchived moves every spec out of the legacy archived/ directory
// into the specs root and marks it archived. Slugs that already exist at
// the root are left in place. It returns the migrated slugs.
func (s *Service) MigrateArchived(ctx context.Context, projectID string) ([]string, error) {
	unlock := s.lock(projectID)
	defer unlock()

	l, err := s.loader(ctx, projectID)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(l.Root())
	if err != nil {
		return nil, fmt.Errorf("specservice: open specs dir: %w", err)
	}
	migrated := []string{}
	if !store.Exists(loader.ArchivedDir) {
		return migrated, nil
	}
	names, err := store.ListDirs(loader.ArchivedDir)
	if err != nil {
		return nil, fmt.Errorf("specservice: list archived: %w", err)
	}

	for _, name := range names {
		if name == "" || name[0] < '0' || name[0] > '9' {
			continue
		}
		if store.Exists(name) {
			s.logger.Warn("migrate: target exists, skipping", slog.String("spec", name))
			continue
		}
		if err := store.Move(path.Join(loader.ArchivedDir, name), name); err != nil {
			return migrated, fmt.Errorf("specservice: move %s: %w", name, err)
		}
		migrated = append(migrated, name)

		doc := path.Join(name, loader.MainDocument)
		data, err := store.Read(doc)
		if err != nil {
			s.logger.Warn("migrate: no main document", slog.String("spec", name), slog.String("error", err.Error()))
			continue
		}
		content, err := parser.SetField(string(data), "status", models.StatusArchived)
		if err != nil {
			s.logger.Warn("migrate: status not rewritten", slog.String("spec", name), slog.String("error", err.Error()))
			continue
		}
		if err := store.Write(doc, []byte(content)); err != nil {
			return migrated, fmt.Errorf("specservice: write %s: %w", doc, err)
		}
		s.logger.Info("migrated archived spec", slog.String("project", projectID), slog.String("spec", name))
	}
	return migrated, nil
}

// lock serializes writes within one project.
func (s *Service) lock(projectID string) func() {
	s.mu.Lock()
	m, ok := s.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[projectID] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}
