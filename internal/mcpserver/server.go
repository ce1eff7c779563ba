// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the spec engine for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/specdesk/internal/apperr"
	"github.com/starford/specdesk/internal/specservice"
)

// SpecFormatURI is the resource URI of the spec format contract.
const SpecFormatURI = "specdesk://spec-format"

// Server wraps the MCP server with spec tools.
type Server struct {
	mcp   *server.MCPServer
	specs *specservice.Service
	// defaultProject supplies the project used when a call names none.
	defaultProject func() string
}

// New creates a new MCP server with all spec tools registered.
func New(specs *specservice.Service, defaultProject func() string) *Server {
	if defaultProject == nil {
		defaultProject = func() string { return "" }
	}
	s := &Server{specs: specs, defaultProject: defaultProject}

	s.mcp = server.NewMCPServer(
		"specdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	project := mcp.WithString("project", mcp.Description("Project id (defaults to the active project)"))
	spec := mcp.WithString("spec", mcp.Required(), mcp.Description("Spec number (7, 007), slug (007-auth) or id (fs-007-auth)"))

	s.mcp.AddTool(mcp.NewTool("list_specs",
		mcp.WithDescription("List specs with status, priority, tags and dependencies. Content is omitted."),
		project,
		mcp.WithString("status", mcp.Description("Only specs with this status"),
			mcp.Enum("draft", "planned", "in-progress", "complete", "archived")),
	), s.listSpecs)

	s.mcp.AddTool(mcp.NewTool("get_spec",
		mcp.WithDescription("Read one spec including its full Markdown content and checksum."),
		project, spec,
	), s.getSpec)

	s.mcp.AddTool(mcp.NewTool("search_specs",
		mcp.WithDescription("Case-insensitive search over spec names, titles, content and tags."),
		project,
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), s.searchSpecs)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Aggregate statistics: counts by status and priority, completion rate, tag usage."),
		project,
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("get_dependency_graph",
		mcp.WithDescription("Dependency graph of numbered specs. An edge points from a dependency to the spec that needs it."),
		project,
	), s.getDependencyGraph)

	s.mcp.AddTool(mcp.NewTool("get_spec_dependencies",
		mcp.WithDescription("What one spec depends on and which specs require it."),
		project, spec,
	), s.getSpecDependencies)

	s.mcp.AddTool(mcp.NewTool("validate_specs",
		mcp.WithDescription("Validate one spec, or every spec including broken dependency references when spec is omitted."),
		project,
		mcp.WithString("spec", mcp.Description("Spec to validate (all specs when omitted)")),
	), s.validateSpecs)

	s.mcp.AddTool(mcp.NewTool("update_spec_status",
		mcp.WithDescription("Change a spec's status in place, stamping the update time. "+
			"A draft must go through planned unless force is set."),
		project, spec,
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"),
			mcp.Enum("draft", "planned", "in-progress", "complete", "archived")),
		mcp.WithBoolean("force", mcp.Description("Allow skipping the planned stage")),
	), s.updateSpecStatus)

	s.mcp.AddTool(mcp.NewTool("get_spec_contract",
		mcp.WithDescription("Returns the spec format contract. "+
			"Call this before editing specs to ensure correct structure."),
	), s.getSpecContract)

	s.mcp.AddResource(
		mcp.NewResource(SpecFormatURI, "Spec Format Contract",
			mcp.WithResourceDescription("Directory layout and frontmatter every spec follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSpecFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) project(req mcp.CallToolRequest) (string, error) {
	if p := req.GetString("project", ""); p != "" {
		return p, nil
	}
	if p := s.defaultProject(); p != "" {
		return p, nil
	}
	return "", errors.New("no project selected: pass project or activate one")
}

func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err), nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if apperr.IsNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listSpecs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.ListSpecs(ctx, project, specservice.Filter{Status: req.GetString("status", "")}))
}

func (s *Server) getSpec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.GetSpec(ctx, project, id))
}

func (s *Server) searchSpecs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.Search(ctx, project, query))
}

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.Stats(ctx, project))
}

func (s *Server) getDependencyGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.Graph(ctx, project))
}

func (s *Server) getSpecDependencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.specs.SpecDependencies(ctx, project, id))
}

func (s *Server) validateSpecs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id := req.GetString("spec", ""); id != "" {
		return jsonResult(s.specs.ValidateSpec(ctx, project, id))
	}
	return jsonResult(s.specs.ValidateAll(ctx, project))
}

func (s *Server) updateSpecStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec, err := s.specs.UpdateStatus(ctx, project, id, specservice.StatusUpdate{
		Status: status,
		Force:  req.GetBool("force", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: status is now %s", spec.Name, spec.Status)), nil
}

func (s *Server) getSpecContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SpecFormatContract), nil
}

func (s *Server) readSpecFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SpecFormatURI,
			MIMEType: "text/markdown",
			Text:     SpecFormatContract,
		},
	}, nil
}
