package specservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/specdesk/internal/apperr"
	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/testutil"
	"github.com/starford/specdesk/internal/validation"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestService(t *testing.T, files map[string]string) (*Service, string) {
	t.Helper()
	root := testutil.SpecsTree(t, files)
	svc := NewService(Dir(root), nil, Options{})
	svc.now = func() time.Time { return fixedNow }
	return svc, root
}

func readDoc(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestUpdateStatus_RewritesInPlace(t *testing.T) {
	doc := "---\nstatus: planned\npriority: high   # keep\ntags: [a, b]\n---\n\n# Title\n\nBody stays.\n"
	svc, root := newTestService(t, map[string]string{"001-a/README.md": doc})

	got, err := svc.UpdateStatus(context.Background(), "p", "1", StatusUpdate{Status: "in-progress"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != "in-progress" {
		t.Errorf("status = %q", got.Status)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updated_at = %v", got.UpdatedAt)
	}

	want := "---\nstatus: in-progress\npriority: high   # keep\ntags: [a, b]\nupdated_at: '2025-03-04T05:06:07Z'\n---\n\n# Title\n\nBody stays.\n"
	if disk := readDoc(t, root, "001-a/README.md"); disk != want {
		t.Errorf("file = %q\nwant %q", disk, want)
	}
}

func TestUpdateStatus_CamelCaseAndComplete(t *testing.T) {
	doc := "---\nstatus: in-progress\nupdatedAt: '2020-01-01T00:00:00Z'\n---\n# T\n"
	svc, root := newTestService(t, map[string]string{"001-a/README.md": doc})

	got, err := svc.UpdateStatus(context.Background(), "p", "001-a", StatusUpdate{Status: "complete"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	disk := readDoc(t, root, "001-a/README.md")
	if !strings.Contains(disk, "updatedAt: '2025-03-04T05:06:07Z'\n") || strings.Contains(disk, "updated_at") {
		t.Errorf("updatedAt spelling not kept: %q", disk)
	}
	if !strings.Contains(disk, "completed_at: '2025-03-04T05:06:07Z'\n") {
		t.Errorf("completed_at missing: %q", disk)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at should be loaded")
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: planned\n---\n"})
	_, err := svc.UpdateStatus(context.Background(), "p", "1", StatusUpdate{Status: "done"})
	if !errors.Is(err, apperr.ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateStatus_SkipPlanned(t *testing.T) {
	svc, root := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: draft\n---\n# T\n"})
	ctx := context.Background()

	for _, status := range []string{"in-progress", "complete"} {
		_, err := svc.UpdateStatus(ctx, "p", "1", StatusUpdate{Status: status})
		if !errors.Is(err, apperr.ErrSkippedStage) {
			t.Errorf("%s: err = %v, want ErrSkippedStage", status, err)
		}
	}
	if disk := readDoc(t, root, "001-a/README.md"); disk != "---\nstatus: draft\n---\n# T\n" {
		t.Errorf("rejected update must not write: %q", disk)
	}

	got, err := svc.UpdateStatus(ctx, "p", "1", StatusUpdate{Status: "complete", Force: true})
	if err != nil || got.Status != "complete" {
		t.Errorf("forced update: %v, %v", got, err)
	}
}

func TestUpdateStatus_DraftToPlanned(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: draft\n---\n# T\n"})
	got, err := svc.UpdateStatus(context.Background(), "p", "1", StatusUpdate{Status: "planned"})
	if err != nil || got.Status != "planned" {
		t.Errorf("draft -> planned: %v, %v", got, err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: planned\n---\n"})
	_, err := svc.UpdateStatus(context.Background(), "p", "042", StatusUpdate{Status: "planned"})
	if !errors.Is(err, apperr.ErrSpecNotFound) {
		t.Errorf("err = %v, want ErrSpecNotFound", err)
	}
}

func TestUpdateStatus_IfMatch(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: planned\n---\n# T\n"})
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "p", "1", StatusUpdate{Status: "in-progress", IfMatch: "stale"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	detail, err := svc.GetSpec(ctx, "p", "1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, "p", "1", StatusUpdate{Status: "in-progress", IfMatch: detail.Checksum}); err != nil {
		t.Errorf("matching checksum rejected: %v", err)
	}
}

func TestUpdateStatus_ArchivedLocation(t *testing.T) {
	svc, root := newTestService(t, map[string]string{
		"archived/005-old/README.md": "---\nstatus: complete\n---\n# Old\n",
	})
	if _, err := svc.UpdateStatus(context.Background(), "p", "5", StatusUpdate{Status: "archived"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if disk := readDoc(t, root, "archived/005-old/README.md"); !strings.Contains(disk, "status: archived\n") {
		t.Errorf("archived doc not rewritten: %q", disk)
	}
	if _, err := os.Stat(filepath.Join(root, "005-old")); !os.IsNotExist(err) {
		t.Error("update must not create a root-level copy")
	}
}

func TestUpdateStatus_ConcurrentWritesSerialized(t *testing.T) {
	svc, root := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: planned\n---\n# T\n"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, status := range []string{"in-progress", "complete", "planned", "in-progress"} {
		wg.Add(1)
		go func(st string) {
			defer wg.Done()
			if _, err := svc.UpdateStatus(ctx, "p", "1", StatusUpdate{Status: st}); err != nil {
				t.Errorf("%s: %v", st, err)
			}
		}(status)
	}
	wg.Wait()

	disk := readDoc(t, root, "001-a/README.md")
	if strings.Count(disk, "status:") != 1 || strings.Count(disk, "updated_at:") != 1 {
		t.Errorf("document corrupted by concurrent writes: %q", disk)
	}
}

func TestMigrateArchived(t *testing.T) {
	svc, root := newTestService(t, map[string]string{
		"001-live/README.md":          "---\nstatus: planned\n---\n# Live\n",
		"archived/002-old/README.md":  "---\nstatus: complete\nowner: x\n---\n# Old\n",
		"archived/001-live/README.md": "---\nstatus: complete\n---\n# Dup\n",
	})
	ctx := context.Background()

	moved, err := svc.MigrateArchived(ctx, "p")
	if err != nil {
		t.Fatalf("MigrateArchived: %v", err)
	}
	if !slices.Equal(moved, []string{"002-old"}) {
		t.Errorf("moved = %v", moved)
	}
	if disk := readDoc(t, root, "002-old/README.md"); disk != "---\nstatus: archived\nowner: x\n---\n# Old\n" {
		t.Errorf("migrated doc = %q", disk)
	}

	spec, err := svc.GetSpec(ctx, "p", "002-old")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Archived || spec.Status != models.StatusArchived || spec.FilePath != "specs/002-old/README.md" {
		t.Errorf("migrated spec = %+v", spec.Spec)
	}
}

func TestMigrateArchived_NoArchivedDir(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"001-a/README.md": "---\nstatus: planned\n---\n"})
	moved, err := svc.MigrateArchived(context.Background(), "p")
	if err != nil || len(moved) != 0 {
		t.Errorf("moved = %v, err = %v", moved, err)
	}
}

func TestQueries(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{
		"001-base/README.md":    testutil.SpecDoc("Base", "status: complete", "tags: [core]"),
		"002-feature/README.md": testutil.SpecDoc("Feature", "status: planned", "depends_on: [\"001\", \"999\"]"),
	})
	ctx := context.Background()

	list, err := svc.ListSpecs(ctx, "p", Filter{Status: "planned"})
	if err != nil || len(list) != 1 || list[0].Name != "002-feature" {
		t.Errorf("ListSpecs = %+v, %v", list, err)
	}

	deps, err := svc.SpecDependencies(ctx, "p", "2")
	if err != nil || len(deps.DependsOn) != 1 || deps.DependsOn[0].Name != "001-base" {
		t.Errorf("SpecDependencies = %+v, %v", deps, err)
	}

	g, err := svc.Graph(ctx, "p")
	if err != nil || len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("Graph = %+v, %v", g, err)
	}

	st, err := svc.Stats(ctx, "p")
	if err != nil || st.TotalSpecs != 2 || st.CompletionRate != 50 {
		t.Errorf("Stats = %+v, %v", st, err)
	}

	results, err := svc.ValidateAll(ctx, "p")
	if err != nil || len(results) != 2 {
		t.Fatalf("ValidateAll = %+v, %v", results, err)
	}
	found := false
	for _, is := range results[1].Issues {
		if is.Code == validation.CodeBrokenDependency {
			found = true
		}
	}
	if !found || !results[1].Valid {
		t.Errorf("feature result = %+v", results[1])
	}

	if _, err := svc.GetSpec(ctx, "p", "nope"); !apperr.IsNotFound(err) {
		t.Errorf("GetSpec(nope) err = %v", err)
	}
}

func TestStrictDependencies(t *testing.T) {
	root := testutil.SpecsTree(t, map[string]string{
		"001-a/README.md": testutil.SpecDoc("A", "status: planned", "depends_on: [\"999\"]"),
	})
	svc := NewService(Dir(root), nil, Options{StrictDependencies: true})
	results, err := svc.ValidateAll(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Valid {
		t.Error("strict mode should invalidate")
	}
}
