package depgraph

import (
	"testing"

	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/specref"
)

func spec(number int, name string, deps ...string) models.Spec {
	n := number
	return models.Spec{
		ID:        specref.ID(name),
		Number:    &n,
		Name:      name,
		Title:     "Title " + name,
		Status:    models.StatusPlanned,
		Tags:      []string{},
		DependsOn: deps,
	}
}

func hasEdge(g models.DependencyGraph, source, target string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && e.Type == models.EdgeDependsOn {
			return true
		}
	}
	return false
}

func TestBuild_ThreeSpecs(t *testing.T) {
	specs := []models.Spec{
		spec(1, "001-base"),
		spec(2, "002-feature", "001-base"),
		spec(3, "003-extension", "002-feature", "001"),
	}
	g := Build(specs)

	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(g.Nodes))
	}
	if len(g.Edges) != 3 {
		t.Fatalf("edges = %d, want 3: %+v", len(g.Edges), g.Edges)
	}
	for _, pair := range [][2]string{
		{"fs-001-base", "fs-002-feature"},
		{"fs-002-feature", "fs-003-extension"},
		{"fs-001-base", "fs-003-extension"},
	} {
		if !hasEdge(g, pair[0], pair[1]) {
			t.Errorf("missing edge %s -> %s", pair[0], pair[1])
		}
	}
}

func TestBuild_SkipsSelfAndUnresolved(t *testing.T) {
	specs := []models.Spec{
		spec(1, "001-base", "001", "1-base", "999", "ghost"),
	}
	g := Build(specs)
	if len(g.Edges) != 0 {
		t.Errorf("edges = %+v, want none", g.Edges)
	}
}

func TestBuild_UnnumberedExcluded(t *testing.T) {
	loose := models.Spec{ID: "fs-idea", Name: "idea", Status: models.StatusDraft, DependsOn: []string{"001"}}
	specs := []models.Spec{
		loose,
		spec(1, "001-base", "idea"),
	}
	g := Build(specs)
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "fs-001-base" {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if len(g.Edges) != 0 {
		t.Errorf("edges = %+v, want none", g.Edges)
	}
}

func TestBuild_NodeDefaults(t *testing.T) {
	s := spec(7, "007-untitled")
	s.Title = ""
	s.Tags = nil
	g := Build([]models.Spec{s})
	n := g.Nodes[0]
	if n.Name != "Spec 7" || n.Priority != "medium" || n.Number != 7 || n.Tags == nil {
		t.Errorf("node = %+v", n)
	}
}

func TestResolve_Forms(t *testing.T) {
	r := NewResolver([]models.Spec{spec(1, "001-base"), spec(12, "012-other")}, true)
	for _, ref := range []string{"001-base", "001", "1", " 001-base ", "1-anything"} {
		s, ok := r.Resolve(ref)
		if !ok || s.Name != "001-base" {
			t.Errorf("Resolve(%q) = %v, %v", ref, s, ok)
		}
	}
	if s, ok := r.Resolve("12"); !ok || s.Name != "012-other" {
		t.Errorf("Resolve(12) = %v, %v", s, ok)
	}
	if _, ok := r.Resolve("999"); ok {
		t.Error("Resolve(999) should fail")
	}
	if _, ok := r.Resolve(""); ok {
		t.Error("empty reference should not resolve")
	}
}

func TestSpecDependencies(t *testing.T) {
	base := spec(1, "001-base")
	base.RequiredBy = []string{"002-feature", "gone"}
	feature := spec(2, "002-feature", "001", "missing")
	all := []models.Spec{base, feature}

	deps := SpecDependencies(&feature, all)
	if len(deps.DependsOn) != 1 || deps.DependsOn[0].Name != "001-base" || deps.DependsOn[0].Title != "Title 001-base" {
		t.Errorf("depends_on = %+v", deps.DependsOn)
	}
	if len(deps.RequiredBy) != 0 {
		t.Errorf("required_by = %+v", deps.RequiredBy)
	}

	deps = SpecDependencies(&base, all)
	if len(deps.RequiredBy) != 1 || deps.RequiredBy[0].Name != "002-feature" {
		t.Errorf("required_by = %+v", deps.RequiredBy)
	}
}
