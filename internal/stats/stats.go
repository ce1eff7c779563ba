// Package stats aggregates counts and rates over a loaded spec set.
package stats

import (
	"math"
	"sort"

	"github.com/starford/specdesk/internal/models"
)

// StatusCount is one bucket of the status histogram.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// PriorityCount is one bucket of the priority histogram.
type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

// Result holds the aggregate numbers for one project.
type Result struct {
	TotalProjects         int             `json:"total_projects"`
	TotalSpecs            int             `json:"total_specs"`
	SpecsByStatus         []StatusCount   `json:"specs_by_status"`
	SpecsByPriority       []PriorityCount `json:"specs_by_priority"`
	CompletionRate        float64         `json:"completion_rate"`
	ActiveSpecs           int             `json:"active_specs"`
	TotalTags             int             `json:"total_tags"`
	AvgTagsPerSpec        float64         `json:"avg_tags_per_spec"`
	SpecsWithDependencies int             `json:"specs_with_dependencies"`
}

// Calculate computes the statistics for specs. Histograms are sorted by
// count descending, ties by name.
func Calculate(specs []models.Spec) Result {
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	tags := map[string]struct{}{}
	tagTotal, withDeps := 0, 0

	for i := range specs {
		s := &specs[i]
		byStatus[s.Status]++
		if s.Priority != "" {
			byPriority[s.Priority]++
		}
		tagTotal += len(s.Tags)
		for _, t := range s.Tags {
			tags[t] = struct{}{}
		}
		if len(s.DependsOn) > 0 {
			withDeps++
		}
	}

	total := len(specs)
	res := Result{
		TotalProjects:         1,
		TotalSpecs:            total,
		SpecsByStatus:         make([]StatusCount, 0, len(byStatus)),
		SpecsByPriority:       make([]PriorityCount, 0, len(byPriority)),
		ActiveSpecs:           byStatus[models.StatusDraft] + byStatus[models.StatusPlanned] + byStatus[models.StatusInProgress],
		TotalTags:             len(tags),
		SpecsWithDependencies: withDeps,
	}
	if total > 0 {
		res.CompletionRate = round(float64(byStatus[models.StatusComplete])/float64(total)*100, 1)
		res.AvgTagsPerSpec = round(float64(tagTotal)/float64(total), 2)
	}

	for status, n := range byStatus {
		res.SpecsByStatus = append(res.SpecsByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(res.SpecsByStatus, func(i, j int) bool {
		a, b := res.SpecsByStatus[i], res.SpecsByStatus[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Status < b.Status
	})

	for priority, n := range byPriority {
		res.SpecsByPriority = append(res.SpecsByPriority, PriorityCount{Priority: priority, Count: n})
	}
	sort.Slice(res.SpecsByPriority, func(i, j int) bool {
		a, b := res.SpecsByPriority[i], res.SpecsByPriority[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Priority < b.Priority
	})

	return res
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
