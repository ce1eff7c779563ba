// Package testutil provides shared test helpers for setting up spec trees and registries.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/specdesk/internal/registry"
)

// TestRegistry opens a registry on a temporary SQLite database that is
// automatically cleaned up.
func TestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dbFile, err := os.CreateTemp("", "specdesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	reg, err := registry.Open(dbFile.Name(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

// SpecsTree writes files (relative path to content) under a fresh temporary
// directory and returns its path.
func SpecsTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// WriteFiles writes files relative to root, creating parent directories.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// SpecDoc renders a minimal spec document with the given frontmatter lines
// and an H1 title.
func SpecDoc(title string, frontmatter ...string) string {
	doc := "---\n"
	for _, line := range frontmatter {
		doc += line + "\n"
	}
	doc += "---\n\n"
	if title != "" {
		doc += fmt.Sprintf("# %s\n\n", title)
	}
	doc += "## Overview\n\nBody.\n"
	return doc
}
