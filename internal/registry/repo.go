package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/specdesk/internal/apperr"
	"github.com/starford/specdesk/internal/checksum"
)

// Project is one registered project root.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	SpecsDir     string    `json:"specs_dir"`
	Description  string    `json:"description,omitempty"`
	Color        string    `json:"color,omitempty"`
	Favorite     bool      `json:"favorite"`
	AddedAt      time.Time `json:"added_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// descriptorFiles may carry a project description.
var descriptorFiles = []string{"leanspec.yaml", "leanspec.yml", "lean-spec.yaml", "lean-spec.yml"}

// ProjectID derives the stable id of a project from its absolute path.
func ProjectID(absPath string) string {
	return checksum.Short([]byte(absPath), 12)
}

// DetectSpecsDir returns the specs directory of a project root: specs/
// or, failing that, .lean-spec/specs/.
func DetectSpecsDir(root string) (string, error) {
	for _, candidate := range []string{
		filepath.Join(root, "specs"),
		filepath.Join(root, ".lean-spec", "specs"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no specs directory found in %s", apperr.ErrInvalidProject, root)
}

// Inspect validates dir as a project root and describes it without
// registering it.
func Inspect(dir string) (Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Project{}, fmt.Errorf("%w: %s is not accessible: %v", apperr.ErrInvalidProject, dir, err)
	}
	if !info.IsDir() {
		return Project{}, fmt.Errorf("%w: %s is not a directory", apperr.ErrInvalidProject, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return Project{}, fmt.Errorf("registry: resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	specsDir, err := DetectSpecsDir(abs)
	if err != nil {
		return Project{}, err
	}

	name := filepath.Base(abs)
	if name == "" || name == string(filepath.Separator) || name == "." {
		name = "Untitled Project"
	}
	return Project{
		ID:          ProjectID(abs),
		Name:        name,
		Path:        abs,
		SpecsDir:    specsDir,
		Description: readDescription(abs),
	}, nil
}

func readDescription(root string) string {
	for _, name := range descriptorFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			continue
		}
		if d, ok := doc["description"].(string); ok {
			return d
		}
	}
	return ""
}

const projectColumns = `id, name, path, specs_dir, description, color, favorite, added_at, last_accessed`

func scanProject(row interface{ Scan(...any) error }) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Path, &p.SpecsDir, &p.Description, &p.Color, &p.Favorite, &p.AddedAt, &p.LastAccessed)
	return p, err
}

// Add registers the project rooted at dir. Adding an already registered
// project only refreshes its last access time.
func (r *Registry) Add(ctx context.Context, dir string) (Project, error) {
	candidate, err := Inspect(dir)
	if err != nil {
		return Project{}, err
	}
	now := r.now().UTC()

	if _, err := r.Find(ctx, candidate.ID); err == nil {
		return r.touch(ctx, candidate.ID, now)
	} else if !errors.Is(err, apperr.ErrProjectNotFound) {
		return Project{}, err
	}

	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO projects (id, name, path, specs_dir, description, added_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, candidate.ID, candidate.Name, candidate.Path, candidate.SpecsDir, candidate.Description, now, now)
	if err != nil {
		return Project{}, fmt.Errorf("registry: insert project: %w", err)
	}
	r.logger.Info("project registered", slog.String("id", candidate.ID), slog.String("path", candidate.Path))
	return r.Find(ctx, candidate.ID)
}

// Find returns the project with the given id.
func (r *Registry) Find(ctx context.Context, id string) (Project, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("%w: %s", apperr.ErrProjectNotFound, id)
	}
	if err != nil {
		return Project{}, fmt.Errorf("registry: find project: %w", err)
	}
	return p, nil
}

// SpecsDir returns the specs directory of a registered project.
func (r *Registry) SpecsDir(ctx context.Context, id string) (string, error) {
	p, err := r.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return p.SpecsDir, nil
}

// All returns every project in registration order.
func (r *Registry) All(ctx context.Context) ([]Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY added_at, id`)
}

// Recent returns projects ordered by most recent access.
func (r *Registry) Recent(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY last_accessed DESC, id LIMIT ?`, limit)
}

func (r *Registry) list(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetActive marks a project as the most recently accessed one.
func (r *Registry) SetActive(ctx context.Context, id string) (Project, error) {
	return r.touch(ctx, id, r.now().UTC())
}

func (r *Registry) touch(ctx context.Context, id string, at time.Time) (Project, error) {
	res, err := r.conn.ExecContext(ctx, `UPDATE projects SET last_accessed = ? WHERE id = ?`, at, id)
	if err != nil {
		return Project{}, fmt.Errorf("registry: touch project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Project{}, fmt.Errorf("%w: %s", apperr.ErrProjectNotFound, id)
	}
	return r.Find(ctx, id)
}

// SetFavorite flags or unflags a project.
func (r *Registry) SetFavorite(ctx context.Context, id string, favorite bool) (Project, error) {
	res, err := r.conn.ExecContext(ctx, `UPDATE projects SET favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return Project{}, fmt.Errorf("registry: set favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Project{}, fmt.Errorf("%w: %s", apperr.ErrProjectNotFound, id)
	}
	return r.Find(ctx, id)
}

// Remove unregisters a project. Files on disk are not touched.
func (r *Registry) Remove(ctx context.Context, id string) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("registry: remove project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", apperr.ErrProjectNotFound, id)
	}
	r.logger.Info("project removed", slog.String("id", id))
	return nil
}
