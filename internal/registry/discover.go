package registry

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxDiscoverDepth bounds how many directory levels below the search root
// Discover looks for project roots.
const MaxDiscoverDepth = 3

// discoverPatterns match a specs directory at most MaxDiscoverDepth levels
// below the search root.
func discoverPatterns() []string {
	var out []string
	for d := 0; d <= MaxDiscoverDepth; d++ {
		prefix := strings.Repeat("*/", d)
		out = append(out, prefix+"specs", prefix+".lean-spec/specs")
	}
	return out
}

// Discover returns up to limit project roots under root, shallowest
// first. Once a directory is a project root, nothing below it is reported.
func Discover(root string, limit int) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("registry: discover: %w", err)
	}
	fsys := os.DirFS(abs)
	var matches []string
	for _, pattern := range discoverPatterns() {
		m, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("registry: discover %s: %w", pattern, err)
		}
		matches = append(matches, m...)
	}

	roots := map[string]struct{}{}
	for _, m := range matches {
		if info, err := os.Stat(filepath.Join(abs, filepath.FromSlash(m))); err != nil || !info.IsDir() {
			continue
		}
		projectRoot := path.Dir(m)
		if path.Base(projectRoot) == ".lean-spec" {
			projectRoot = path.Dir(projectRoot)
		}
		roots[projectRoot] = struct{}{}
	}

	ordered := make([]string, 0, len(roots))
	for r := range roots {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := depth(ordered[i]), depth(ordered[j])
		if di != dj {
			return di < dj
		}
		return ordered[i] < ordered[j]
	})

	found := []string{}
	var kept []string
	for _, r := range ordered {
		if nestedUnder(r, kept) {
			continue
		}
		kept = append(kept, r)
		found = append(found, filepath.Join(abs, filepath.FromSlash(r)))
		if limit > 0 && len(found) >= limit {
			break
		}
	}
	return found, nil
}

func depth(rel string) int {
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func nestedUnder(rel string, roots []string) bool {
	for _, r := range roots {
		if r == "." || strings.HasPrefix(rel, r+"/") {
			return true
		}
	}
	return false
}

