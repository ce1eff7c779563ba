package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/specdesk/internal/specservice"
	"github.com/starford/specdesk/internal/testutil"
)

func testServer(t *testing.T, defaultProject string) (*Server, string) {
	t.Helper()

	dir := testutil.SpecsTree(t, map[string]string{
		"001-base/README.md":    testutil.SpecDoc("Base", "status: complete", "tags: [core]"),
		"002-feature/README.md": testutil.SpecDoc("Feature", "status: draft", "depends_on: [001]"),
		"003-polish/README.md":  testutil.SpecDoc("Polish", "status: planned", "depends_on: [002-feature, 042]"),
	})
	svc := specservice.NewService(specservice.Dir(dir), nil, specservice.Options{})
	return New(svc, func() string { return defaultProject }), dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_specs":
		result, err = srv.listSpecs(ctx, req)
	case "get_spec":
		result, err = srv.getSpec(ctx, req)
	case "search_specs":
		result, err = srv.searchSpecs(ctx, req)
	case "get_stats":
		result, err = srv.getStats(ctx, req)
	case "get_dependency_graph":
		result, err = srv.getDependencyGraph(ctx, req)
	case "get_spec_dependencies":
		result, err = srv.getSpecDependencies(ctx, req)
	case "validate_specs":
		result, err = srv.validateSpecs(ctx, req)
	case "update_spec_status":
		result, err = srv.updateSpecStatus(ctx, req)
	case "get_spec_contract":
		result, err = srv.getSpecContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListSpecs(t *testing.T) {
	srv, _ := testServer(t, "local")

	r := callTool(t, srv, "list_specs", map[string]interface{}{})
	var specs []struct {
		Name       string   `json:"name"`
		RequiredBy []string `json:"required_by"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &specs); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if len(specs) != 3 || specs[1].Name != "002-feature" || len(specs[1].RequiredBy) != 1 {
		t.Errorf("specs = %+v", specs)
	}

	r = callTool(t, srv, "list_specs", map[string]interface{}{"status": "planned"})
	if text := resultText(r); !strings.Contains(text, "003-polish") || strings.Contains(text, "001-base") {
		t.Errorf("filtered = %s", text)
	}
}

func TestNoProjectSelected(t *testing.T) {
	srv, _ := testServer(t, "")
	r := callTool(t, srv, "get_stats", map[string]interface{}{})
	if !r.IsError || !strings.Contains(resultText(r), "no project selected") {
		t.Errorf("result = %+v", r)
	}

	r = callTool(t, srv, "get_stats", map[string]interface{}{"project": "explicit"})
	if r.IsError {
		t.Errorf("explicit project rejected: %s", resultText(r))
	}
}

func TestGetSpec(t *testing.T) {
	srv, _ := testServer(t, "local")

	r := callTool(t, srv, "get_spec", map[string]interface{}{"spec": "2"})
	if r.IsError || !strings.Contains(resultText(r), `"title": "Feature"`) {
		t.Errorf("get_spec = %s", resultText(r))
	}

	r = callTool(t, srv, "get_spec", map[string]interface{}{"spec": "99"})
	if !r.IsError || !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("missing spec = %s", resultText(r))
	}

	r = callTool(t, srv, "get_spec", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing spec argument should be an error")
	}
}

func TestSearchAndDependencies(t *testing.T) {
	srv, _ := testServer(t, "local")

	r := callTool(t, srv, "search_specs", map[string]interface{}{"query": "CORE"})
	var hits []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if len(hits) != 1 || hits[0].Name != "001-base" {
		t.Errorf("search = %s", resultText(r))
	}

	r = callTool(t, srv, "get_spec_dependencies", map[string]interface{}{"spec": "002"})
	var deps struct {
		DependsOn  []struct{ Name string } `json:"depends_on"`
		RequiredBy []struct{ Name string } `json:"required_by"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &deps); err != nil {
		t.Fatal(err)
	}
	if len(deps.DependsOn) != 1 || deps.DependsOn[0].Name != "001-base" ||
		len(deps.RequiredBy) != 1 || deps.RequiredBy[0].Name != "003-polish" {
		t.Errorf("deps = %+v", deps)
	}

	r = callTool(t, srv, "get_dependency_graph", map[string]interface{}{})
	var g struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil || len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Errorf("graph = %s", resultText(r))
	}
}

func TestValidateSpecs(t *testing.T) {
	srv, _ := testServer(t, "local")

	r := callTool(t, srv, "validate_specs", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "broken-dependency") || !strings.Contains(text, "042") {
		t.Errorf("validate all = %s", text)
	}

	r = callTool(t, srv, "validate_specs", map[string]interface{}{"spec": "001"})
	if text := resultText(r); !strings.Contains(text, `"spec_name": "001-base"`) || strings.Contains(text, "broken-dependency") {
		t.Errorf("validate one = %s", text)
	}
}

func TestUpdateSpecStatus(t *testing.T) {
	srv, dir := testServer(t, "local")

	r := callTool(t, srv, "update_spec_status", map[string]interface{}{"spec": "002", "status": "complete"})
	if !r.IsError || !strings.Contains(resultText(r), "cannot skip 'planned' stage") {
		t.Errorf("skip = %s", resultText(r))
	}

	r = callTool(t, srv, "update_spec_status", map[string]interface{}{"spec": "002", "status": "complete", "force": true})
	if r.IsError || resultText(r) != "002-feature: status is now complete" {
		t.Errorf("forced = %s", resultText(r))
	}
	data, err := os.ReadFile(filepath.Join(dir, "002-feature", "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "status: complete") || !strings.Contains(string(data), "completed_at:") {
		t.Errorf("document = %s", data)
	}

	r = callTool(t, srv, "update_spec_status", map[string]interface{}{"spec": "001", "status": "done"})
	if !r.IsError || !strings.Contains(resultText(r), "invalid status") {
		t.Errorf("invalid = %s", resultText(r))
	}
}

func TestSpecContract(t *testing.T) {
	srv, _ := testServer(t, "local")
	r := callTool(t, srv, "get_spec_contract", map[string]interface{}{})
	if resultText(r) != SpecFormatContract {
		t.Error("contract tool should return the contract")
	}

	contents, err := srv.readSpecFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != SpecFormatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
