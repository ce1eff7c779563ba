// Package loader turns a specs directory into an ordered slice of specs.
//
// Every call re-reads the tree; nothing is cached between calls.
package loader

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/parser"
	"github.com/starford/specdesk/internal/specref"
	"github.com/starford/specdesk/internal/storage"
)

const (
	// MainDocument is the file a spec directory must contain.
	MainDocument = "README.md"
	// ArchivedDir is the legacy subdirectory holding archived specs.
	ArchivedDir = "archived"
)

// Loader reads the specs of a single project.
type Loader struct {
	root      string
	projectID string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Loader for the specs directory root.
func New(root, projectID string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, projectID: projectID, logger: logger, now: time.Now}
}

// Root returns the specs directory this loader reads.
func (l *Loader) Root() string { return l.root }

// LoadAll loads every spec under the root, sorted by sequence number with
// unnumbered specs first, and fills in required_by.
// A missing root yields an empty slice.
func (l *Loader) LoadAll() []models.Spec {
	store, err := storage.NewFS(l.root)
	if err != nil {
		l.logger.Debug("loader: specs root unavailable", slog.String("root", l.root), slog.String("error", err.Error()))
		return []models.Spec{}
	}
	return l.load(store)
}

func (l *Loader) load(store storage.Provider) []models.Spec {
	loadedAt := l.now().UTC()
	specs := l.scan(store, "", false, loadedAt)
	if store.Exists(ArchivedDir) {
		specs = append(specs, l.scan(store, ArchivedDir, true, loadedAt)...)
	}

	sort.SliceStable(specs, func(i, j int) bool {
		a, b := specs[i].Number, specs[j].Number
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return *a < *b
		}
	})
	linkRequiredBy(specs)
	return specs
}

func (l *Loader) scan(store storage.Provider, dir string, archived bool, loadedAt time.Time) []models.Spec {
	names, err := store.ListDirs(dir)
	if err != nil {
		l.logger.Warn("loader: list failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}

	specs := make([]models.Spec, 0, len(names))
	for _, name := range names {
		if name == "" || name[0] < '0' || name[0] > '9' {
			continue
		}
		spec, ok := l.loadOne(store, dir, name, archived, loadedAt)
		if !ok {
			continue
		}
		if archived {
			l.logger.Warn("loader: spec in deprecated archived/ folder",
				slog.String("spec", name),
				slog.String("hint", "run migrate-archived to move it back and mark status archived"))
		}
		specs = append(specs, spec)
	}
	return specs
}

func (l *Loader) loadOne(store storage.Provider, dir, name string, archived bool, loadedAt time.Time) (models.Spec, bool) {
	rel := filepath.Join(dir, name, MainDocument)
	data, err := store.Read(rel)
	if err != nil {
		l.logger.Debug("loader: no readable main document", slog.String("spec", name), slog.String("error", err.Error()))
		return models.Spec{}, false
	}

	text := string(data)
	fm, body := parser.Parse(text)
	if !fm.HasStatus {
		l.logger.Debug("loader: skipping document without status", slog.String("spec", name))
		return models.Spec{}, false
	}

	status := fm.Status
	filePath := "specs/" + name + "/" + MainDocument
	if archived {
		status = models.StatusArchived
		filePath = "specs/" + ArchivedDir + "/" + name + "/" + MainDocument
	}

	spec := models.Spec{
		ID:           specref.ID(name),
		ProjectID:    l.projectID,
		Number:       specref.ParseNumber(name),
		Name:         name,
		Title:        parser.ExtractTitle(body),
		Status:       status,
		Priority:     fm.Priority,
		Tags:         nonNil(fm.Tags),
		Assignee:     fm.Assignee,
		Content:      text,
		CreatedAt:    fm.Created(),
		UpdatedAt:    fm.Updated(),
		CompletedAt:  fm.Completed(),
		FilePath:     filePath,
		LoadedAt:     loadedAt,
		DependsOn:    nonNil(fm.DependsOn),
		RequiredBy:   []string{},
		Archived:     archived,
		SubSpecCount: l.countSubSpecs(store, filepath.Join(dir, name)),
	}
	return spec, true
}

func (l *Loader) countSubSpecs(store storage.Provider, dir string) int {
	files, err := store.ListFiles(dir, ".md")
	if err != nil {
		return 0
	}
	n := 0
	for _, f := range files {
		if f != MainDocument {
			n++
		}
	}
	return n
}

// linkRequiredBy fills each spec's RequiredBy with the slugs of specs whose
// depends_on references resolve to it, in slice order.
func linkRequiredBy(specs []models.Spec) {
	for i := range specs {
		target := &specs[i]
		for j := range specs {
			other := &specs[j]
			if other.Name == target.Name || slices.Contains(target.RequiredBy, other.Name) {
				continue
			}
			for _, ref := range other.DependsOn {
				if specref.Matches(ref, target.Name, target.Number) {
					target.RequiredBy = append(target.RequiredBy, other.Name)
					break
				}
			}
		}
	}
}

// LoadSpec finds one spec by number, slug, slug prefix or id.
func (l *Loader) LoadSpec(identifier string) (models.Spec, bool) {
	return Find(l.LoadAll(), identifier)
}

// Find applies the LoadSpec lookup rules to an already loaded slice.
// An identifier that parses as an integer only ever matches by number.
func Find(specs []models.Spec, identifier string) (models.Spec, bool) {
	if n, err := strconv.ParseInt(identifier, 10, 32); err == nil {
		for _, s := range specs {
			if s.Number != nil && *s.Number == int(n) {
				return s, true
			}
		}
		return models.Spec{}, false
	}

	rules := []func(s *models.Spec) bool{
		func(s *models.Spec) bool { return s.Name == identifier },
		func(s *models.Spec) bool { return strings.HasPrefix(s.Name, identifier+"-") },
		func(s *models.Spec) bool { return s.ID == identifier },
		func(s *models.Spec) bool { return s.ID == specref.ID(identifier) },
	}
	for _, match := range rules {
		for i := range specs {
			if match(&specs[i]) {
				return specs[i], true
			}
		}
	}
	return models.Spec{}, false
}

// ByStatus returns the specs whose status equals status exactly.
func (l *Loader) ByStatus(status string) []models.Spec {
	return FilterStatus(l.LoadAll(), status)
}

// FilterStatus keeps the specs whose status equals status exactly.
func FilterStatus(specs []models.Spec, status string) []models.Spec {
	out := []models.Spec{}
	for _, s := range specs {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// Search returns specs whose slug, title, content or any tag contains
// query, ignoring case.
func (l *Loader) Search(query string) []models.Spec {
	return FilterQuery(l.LoadAll(), query)
}

// FilterQuery is the in-memory form of Search.
func FilterQuery(specs []models.Spec, query string) []models.Spec {
	q := strings.ToLower(query)
	out := []models.Spec{}
	for _, s := range specs {
		if matchesQuery(&s, q) {
			out = append(out, s)
		}
	}
	return out
}

func matchesQuery(s *models.Spec, q string) bool {
	if strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.Title), q) ||
		strings.Contains(strings.ToLower(s.Content), q) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// AllTags returns every distinct tag, sorted.
func (l *Loader) AllTags() []string {
	return Tags(l.LoadAll())
}

// Tags collects the distinct tags of specs in lexicographic order.
func Tags(specs []models.Spec) []string {
	seen := make(map[string]struct{})
	for _, s := range specs {
		for _, t := range s.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
