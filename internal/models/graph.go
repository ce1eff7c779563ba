package models

// EdgeDependsOn is the relation kind carried by every dependency edge.
const EdgeDependsOn = "dependsOn"

// GraphNode is a numbered spec participating in the dependency graph.
type GraphNode struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Number   int      `json:"number"`
	Status   string   `json:"status"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
}

// GraphEdge points from the depended-upon spec to the dependent spec.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// DependencyGraph is the directed graph of spec dependencies.
type DependencyGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// DependencyInfo describes one side of a dependency for display.
type DependencyInfo struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`
}

// SpecDependencies is the per-spec view of both dependency directions.
type SpecDependencies struct {
	DependsOn  []DependencyInfo `json:"depends_on"`
	RequiredBy []DependencyInfo `json:"required_by"`
}
