// Package mcp exposes a WorkflowService over the Model Context Protocol so agents can build
// and run workflows.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	workflowsURI        = "waypoint://workflows"
	workflowTemplateURI = "waypoint://workflows/{id}"
)

// RunResponse is the result of run_workflow.
type RunResponse struct {
	WorkflowID string       `json:"workflow_id" jsonschema_description:"The workflow that ran"`
	Path       domain.Trace `json:"path" jsonschema_description:"Visited nodes from Start to End"`
}

// Server wraps a WorkflowService as an MCP server.
type Server struct {
	svc       ports.WorkflowService
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server for svc.
func NewServer(svc ports.WorkflowService, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("waypoint-mcp", strings.TrimSpace(waypoint.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler serves the streamable HTTP transport, for mounting next to the REST API.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_workflow",
		mcp.WithDescription("Create an empty workflow."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name")),
		mcp.WithOutputSchema[domain.Workflow](),
	), mcp.NewStructuredToolHandler(s.handleCreateWorkflow))

	s.mcpServer.AddTool(mcp.NewTool("create_node",
		mcp.WithDescription("Add a node. Message nodes need a message; Condition nodes need a condition_expression over the variable `message`."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Owning workflow")),
		mcp.WithString("type", mcp.Required(), mcp.Enum("Start", "Message", "Condition", "End"), mcp.Description("Node type")),
		mcp.WithString("id", mcp.Description("Node id; generated when omitted")),
		mcp.WithString("status", mcp.Enum("pending", "sent", "opened"), mcp.Description("Delivery status")),
		mcp.WithString("message", mcp.Description("Message text")),
		mcp.WithString("condition_text", mcp.Description("Human-readable condition")),
		mcp.WithString("condition_expression", mcp.Description("Boolean expression, e.g. message == 'hello'")),
		mcp.WithOutputSchema[domain.Node](),
	), mcp.NewStructuredToolHandler(s.handleCreateNode))

	s.mcpServer.AddTool(mcp.NewTool("create_edge",
		mcp.WithDescription("Connect two nodes. The graph rules are enforced; edges into a Condition node are tagged by evaluating it."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Owning workflow")),
		mcp.WithString("start_node_id", mcp.Required(), mcp.Description("Source node")),
		mcp.WithString("end_node_id", mcp.Required(), mcp.Description("Target node")),
		mcp.WithString("status", mcp.Enum("Yes", "No"), mcp.Description("Branch tag, required when the source is a Condition node")),
		mcp.WithOutputSchema[domain.Edge](),
	), mcp.NewStructuredToolHandler(s.handleCreateEdge))

	s.mcpServer.AddTool(mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a workflow from Start to End, tagging the branches taken."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow to run")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRunWorkflow))

	s.mcpServer.AddTool(mcp.NewTool("get_workflow",
		mcp.WithDescription("Get a workflow with its nodes and edges."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow to fetch")),
		mcp.WithOutputSchema[domain.Workflow](),
	), mcp.NewStructuredToolHandler(s.handleGetWorkflow))
}

func (s *Server) handleCreateWorkflow(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (domain.Workflow, error) {
	var in createWorkflowInput
	if err := decodeArgs(args, &in); err != nil {
		return domain.Workflow{}, err
	}
	wf, err := s.svc.CreateWorkflow(ctx, in.Name)
	if err != nil {
		return domain.Workflow{}, err
	}
	return *wf, nil
}

func (s *Server) handleCreateNode(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (domain.Node, error) {
	var in createNodeInput
	if err := decodeArgs(args, &in); err != nil {
		return domain.Node{}, err
	}
	n, err := s.svc.CreateNode(ctx, in.WorkflowID, in.node())
	if err != nil {
		return domain.Node{}, err
	}
	return *n, nil
}

func (s *Server) handleCreateEdge(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (domain.Edge, error) {
	var in createEdgeInput
	if err := decodeArgs(args, &in); err != nil {
		return domain.Edge{}, err
	}
	e, err := s.svc.CreateEdge(ctx, in.WorkflowID, in.edge())
	if err != nil {
		s.logger.Debug("mcp: edge rejected", "workflow_id", in.WorkflowID, "err", err)
		return domain.Edge{}, err
	}
	return *e, nil
}

func (s *Server) handleRunWorkflow(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	var in workflowRef
	if err := decodeArgs(args, &in); err != nil {
		return RunResponse{}, err
	}
	trace, err := s.svc.RunWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	return RunResponse{WorkflowID: in.WorkflowID, Path: trace}, nil
}

func (s *Server) handleGetWorkflow(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (domain.Workflow, error) {
	var in workflowRef
	if err := decodeArgs(args, &in); err != nil {
		return domain.Workflow{}, err
	}
	wf, err := s.svc.GetWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return domain.Workflow{}, err
	}
	return *wf, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(workflowsURI, "Workflows",
		mcp.WithResourceDescription("Every workflow with its nodes and edges"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		wfs, err := s.svc.ListWorkflows(ctx, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		return jsonContents(workflowsURI, wfs)
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(workflowTemplateURI, "Workflow",
		mcp.WithTemplateDescription("A single workflow by id"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(req.Params.URI, workflowsURI+"/")
		wf, err := s.svc.GetWorkflow(ctx, id)
		if err != nil {
			return nil, err
		}
		return jsonContents(req.Params.URI, wf)
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
