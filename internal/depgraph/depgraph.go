// Package depgraph resolves loose dependency references and builds the
// directed dependency graph of a spec set.
package depgraph

import (
	"fmt"
	"strings"

	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/specref"
)

// Resolver maps dependency references to specs.
type Resolver struct {
	bySlug   map[string]*models.Spec
	byNumber map[int]*models.Spec
}

// NewResolver indexes specs. When numberedOnly is set, specs without a
// sequence number are left out entirely.
func NewResolver(specs []models.Spec, numberedOnly bool) *Resolver {
	r := &Resolver{
		bySlug:   make(map[string]*models.Spec, len(specs)*3),
		byNumber: make(map[int]*models.Spec, len(specs)),
	}
	for i := range specs {
		s := &specs[i]
		if numberedOnly && s.Number == nil {
			continue
		}
		for _, alias := range specref.Aliases(s.Name, s.Number) {
			r.bySlug[alias] = s
		}
		if s.Number != nil {
			r.byNumber[*s.Number] = s
		}
	}
	return r
}

// Resolve returns the spec a reference points at: an exact slug or alias
// match first, then the number before the first hyphen.
func (r *Resolver) Resolve(ref string) (*models.Spec, bool) {
	if s, ok := r.bySlug[strings.TrimSpace(ref)]; ok {
		return s, true
	}
	if n, ok := specref.LeadingNumber(ref); ok {
		if s, ok := r.byNumber[n]; ok {
			return s, true
		}
	}
	return nil, false
}

// Build returns the dependency graph over the numbered specs. Edges run
// from the depended-upon spec to the dependent one; unresolved references
// and self references produce no edge.
func Build(specs []models.Spec) models.DependencyGraph {
	r := NewResolver(specs, true)
	graph := models.DependencyGraph{
		Nodes: []models.GraphNode{},
		Edges: []models.GraphEdge{},
	}

	for i := range specs {
		s := &specs[i]
		if s.Number == nil {
			continue
		}
		graph.Nodes = append(graph.Nodes, node(s))

		for _, ref := range s.DependsOn {
			target, ok := r.Resolve(ref)
			if !ok || target.ID == s.ID {
				continue
			}
			graph.Edges = append(graph.Edges, models.GraphEdge{
				Source: target.ID,
				Target: s.ID,
				Type:   models.EdgeDependsOn,
			})
		}
	}
	return graph
}

func node(s *models.Spec) models.GraphNode {
	name := s.Title
	if name == "" {
		name = fmt.Sprintf("Spec %d", *s.Number)
	}
	priority := s.Priority
	if priority == "" {
		priority = models.DefaultPriority
	}
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.GraphNode{
		ID:       s.ID,
		Name:     name,
		Number:   *s.Number,
		Status:   s.Status,
		Priority: priority,
		Tags:     tags,
	}
}

// SpecDependencies resolves spec's own references against all and expands
// its required_by list for display. Unresolvable depends_on entries are
// dropped; required_by entries come from the loader and are looked up by
// slug only.
func SpecDependencies(spec *models.Spec, all []models.Spec) models.SpecDependencies {
	r := NewResolver(all, false)
	out := models.SpecDependencies{
		DependsOn:  []models.DependencyInfo{},
		RequiredBy: []models.DependencyInfo{},
	}
	for _, ref := range spec.DependsOn {
		if s, ok := r.Resolve(ref); ok {
			out.DependsOn = append(out.DependsOn, info(s))
		}
	}
	for _, name := range spec.RequiredBy {
		if s, ok := r.bySlug[name]; ok {
			out.RequiredBy = append(out.RequiredBy, info(s))
		}
	}
	return out
}

func info(s *models.Spec) models.DependencyInfo {
	return models.DependencyInfo{Name: s.Name, Title: s.Title, Status: s.Status}
}
