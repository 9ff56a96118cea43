// Package mcp exposes the knowledge engine as Model Context Protocol tools
// over stdio, mirroring the HTTP surface for agent consumers.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/engine"
	"github.com/knowledge-engine/ke/internal/store"
)

// service holds the handles every tool handler needs.
type service struct {
	db          *store.DB
	ctx         *active.Context
	engine      *engine.Engine
	workspaceID string
	root        string
}

// NewServer builds the MCP server with every knowledge engine tool
// registered. The caller runs it with server.ServeStdio.
func NewServer(db *store.DB, actx *active.Context, eng *engine.Engine, workspaceID, root, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"knowledge-engine",
		version,
		server.WithToolCapabilities(true),
	)

	svc := &service{db: db, ctx: actx, engine: eng, workspaceID: workspaceID, root: root}

	s.AddTool(testConnectionTool(), svc.handleTestConnection)
	s.AddTool(bootstrapTool(), svc.handleBootstrap)
	s.AddTool(addConceptTool(), svc.handleAddConcept)
	s.AddTool(getConceptTool(), svc.handleGetConcept)
	s.AddTool(updateConceptTool(), svc.handleUpdateConcept)
	s.AddTool(deleteConceptTool(), svc.handleDeleteConcept)
	s.AddTool(moveConceptTool(), svc.handleMoveConcept)
	s.AddTool(deleteResourceTool(), svc.handleDeleteResource)
	s.AddTool(linkNodesTool(), svc.handleLinkNodes)
	s.AddTool(unlinkNodesTool(), svc.handleUnlinkNodes)
	s.AddTool(relationsForNodeTool(), svc.handleRelationsForNode)
	s.AddTool(traverseTool(), svc.handleTraverse)
	s.AddTool(activeContextTool(), svc.handleActiveContext)
	s.AddTool(addToContextTool(), svc.handleAddToContext)
	s.AddTool(clearContextTool(), svc.handleClearContext)

	return s
}

func stringArg(req mcp.CallToolRequest, name string) string {
	args, _ := req.Params.Arguments.(map[string]any)
	v, _ := args[name].(string)
	return v
}

func numberArg(req mcp.CallToolRequest, name string, def float64) float64 {
	args, _ := req.Params.Arguments.(map[string]any)
	if v, ok := args[name].(float64); ok {
		return v
	}
	return def
}

func testConnectionTool() mcp.Tool {
	return mcp.NewTool("test_connection",
		mcp.WithDescription("Verify the knowledge engine is reachable and report workspace statistics."),
	)
}

func (s *service) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.db.CountNodes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relations, err := s.db.CountRelations()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Connected. Workspace: %s, Nodes: %d, Relations: %d", s.workspaceID, nodes, relations)), nil
}

func bootstrapTool() mcp.Tool {
	return mcp.NewTool("bootstrap",
		mcp.WithDescription("Scan the workspace directory tree and mirror directories and files into the knowledge graph."),
	)
}

func (s *service) handleBootstrap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.engine.Bootstrap(s.root, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Bootstrap complete: %d directories, %d files added", result.Dirs, result.Files)), nil
}

func addConceptTool() mcp.Tool {
	return mcp.NewTool("add_concept",
		mcp.WithDescription("Add a concept node. Markdown links of the form [text](concept://uri) in the content automatically create 'references' relations to existing concepts."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Concept URI, e.g. concept://myproject/goals")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Human-readable concept name")),
		mcp.WithString("content", mcp.Description("Concept content (markdown)")),
	)
}

func (s *service) handleAddConcept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	name := stringArg(req, "name")
	if uri == "" || name == "" {
		return mcp.NewToolResultError("uri and name are required"), nil
	}
	node, err := s.engine.AddConcept(uri, name, stringArg(req, "content"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added concept: %s (%s)", node.Name, node.URI)), nil
}

func getConceptTool() mcp.Tool {
	return mcp.NewTool("get_concept",
		mcp.WithDescription("Fetch a concept by URI."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Concept URI")),
	)
}

func (s *service) handleGetConcept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	node, err := s.engine.GetConcept(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if node == nil {
		return mcp.NewToolResultText("No concept found with URI: " + uri), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Concept: %s\nURI: %s\nContent: %s", node.Name, node.URI, node.Content)), nil
}

func updateConceptTool() mcp.Tool {
	return mcp.NewTool("update_concept",
		mcp.WithDescription("Update a concept's name and content. Auto-derived reference relations are refreshed from the new content."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Concept URI")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
		mcp.WithString("content", mcp.Description("New content (markdown)")),
	)
}

func (s *service) handleUpdateConcept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	node, err := s.engine.UpdateConcept(uri, stringArg(req, "name"), stringArg(req, "content"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if node == nil {
		return mcp.NewToolResultText("No concept found with URI: " + uri), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated concept: %s (%s)", node.Name, node.URI)), nil
}

func deleteConceptTool() mcp.Tool {
	return mcp.NewTool("delete_concept",
		mcp.WithDescription("Delete a concept and every relation touching it."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Concept URI")),
	)
}

func (s *service) handleDeleteConcept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	ok, err := s.engine.DeleteConcept(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("No concept to delete at: " + uri), nil
	}
	return mcp.NewToolResultText("Deleted concept: " + uri), nil
}

func moveConceptTool() mcp.Tool {
	return mcp.NewTool("move_concept",
		mcp.WithDescription("Move a concept to a new URI, rewriting all relation endpoints. Fails if the target URI is taken."),
		mcp.WithString("old_uri", mcp.Required(), mcp.Description("Current concept URI")),
		mcp.WithString("new_uri", mcp.Required(), mcp.Description("New concept URI")),
	)
}

func (s *service) handleMoveConcept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldURI := stringArg(req, "old_uri")
	newURI := stringArg(req, "new_uri")
	ok, err := s.engine.MoveConcept(oldURI, newURI)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("No concept to move at: " + oldURI), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved concept %s -> %s", oldURI, newURI)), nil
}

func deleteResourceTool() mcp.Tool {
	return mcp.NewTool("delete_resource",
		mcp.WithDescription("Delete a file or directory node from the graph."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Resource URI, e.g. file://src/main.go")),
	)
}

func (s *service) handleDeleteResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	ok, err := s.engine.DeleteResource(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("No resource to delete at: " + uri), nil
	}
	return mcp.NewToolResultText("Deleted resource: " + uri), nil
}

func linkNodesTool() mcp.Tool {
	return mcp.NewTool("link_nodes",
		mcp.WithDescription("Create a directed, typed, weighted relation between two nodes. Duplicate (source, target, type) triples are ignored."),
		mcp.WithString("source_uri", mcp.Required(), mcp.Description("Source node URI")),
		mcp.WithString("target_uri", mcp.Required(), mcp.Description("Target node URI")),
		mcp.WithString("relation_type", mcp.Required(), mcp.Description("Relation type, e.g. contains, references")),
		mcp.WithNumber("weight", mcp.Description("Traversal cost, >= 0. Default 1.0")),
	)
}

func (s *service) handleLinkNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel, err := s.engine.LinkNodes(
		stringArg(req, "source_uri"),
		stringArg(req, "target_uri"),
		stringArg(req, "relation_type"),
		numberArg(req, "weight", 1.0),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Created relation: %s --[%s]--> %s (weight: %g)",
		rel.SourceURI, rel.RelationType, rel.TargetURI, rel.Weight)), nil
}

func unlinkNodesTool() mcp.Tool {
	return mcp.NewTool("unlink_nodes",
		mcp.WithDescription("Remove the relation matching source, target, and type."),
		mcp.WithString("source_uri", mcp.Required(), mcp.Description("Source node URI")),
		mcp.WithString("target_uri", mcp.Required(), mcp.Description("Target node URI")),
		mcp.WithString("relation_type", mcp.Required(), mcp.Description("Relation type")),
	)
}

func (s *service) handleUnlinkNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := stringArg(req, "source_uri")
	target := stringArg(req, "target_uri")
	relType := stringArg(req, "relation_type")
	if err := s.engine.UnlinkNodes(source, target, relType); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed relation: %s --[%s]--> %s", source, relType, target)), nil
}

func relationsForNodeTool() mcp.Tool {
	return mcp.NewTool("get_relations_for_node",
		mcp.WithDescription("List all incoming and outgoing relations for a node."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Node URI")),
	)
}

func (s *service) handleRelationsForNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	rels, err := s.engine.RelationsForNode(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rels) == 0 {
		return mcp.NewToolResultText("No relations found for node: " + uri), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Relations for %s:\n", uri)
	for _, rel := range rels {
		if rel.SourceURI == uri {
			fmt.Fprintf(&b, "  --[%s]--> %s (weight: %g)\n", rel.RelationType, rel.TargetURI, rel.Weight)
		} else {
			fmt.Fprintf(&b, "  <--[%s]-- %s (weight: %g)\n", rel.RelationType, rel.SourceURI, rel.Weight)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func traverseTool() mcp.Tool {
	return mcp.NewTool("traverse_graph",
		mcp.WithDescription("Explore the graph outward from a start node up to a cumulative cost budget, pulling every visited node into the active context."),
		mcp.WithString("start_uri", mcp.Required(), mcp.Description("URI to start from")),
		mcp.WithNumber("max_cost", mcp.Description("Maximum cumulative edge weight. Default 1.0")),
	)
}

func (s *service) handleTraverse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startURI := stringArg(req, "start_uri")
	maxCost := numberArg(req, "max_cost", 1.0)

	nodes, err := s.engine.Traverse(startURI, maxCost)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("No nodes found during traversal from " + startURI), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Traversed from %s (max_cost: %g):\n", startURI, maxCost)
	for _, node := range nodes {
		fmt.Fprintf(&b, "  %s (%s)\n", node.Name, node.URI)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func activeContextTool() mcp.Tool {
	return mcp.NewTool("get_active_context",
		mcp.WithDescription("List the nodes currently in the active context working set."),
	)
}

func (s *service) handleActiveContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.ctx.ListNodes(s.db)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("Active context is empty"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active context contains %d nodes:\n", len(nodes))
	for _, node := range nodes {
		fmt.Fprintf(&b, "  %s (%s)\n", node.Name, node.URI)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func addToContextTool() mcp.Tool {
	return mcp.NewTool("add_to_active_context",
		mcp.WithDescription("Add a node to the active context. Under capacity pressure a non-protected insert may not be admitted."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Node URI")),
		mcp.WithBoolean("protected", mcp.Description("Pin the node so it is never evicted by size pressure")),
	)
}

func (s *service) handleAddToContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := stringArg(req, "uri")
	args, _ := req.Params.Arguments.(map[string]any)
	protected, _ := args["protected"].(bool)

	node, err := s.db.GetNode(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if node == nil {
		return mcp.NewToolResultText("Node not found: " + uri), nil
	}

	admitted, err := s.ctx.Add(node, protected)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !admitted {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Not admitted (context full of protected entries): %s", uri)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added to active context: %s (%s)", node.Name, uri)), nil
}

func clearContextTool() mcp.Tool {
	return mcp.NewTool("clear_active_context",
		mcp.WithDescription("Clear the active context, preserving protected entries."),
	)
}

func (s *service) handleClearContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ctx.Clear(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Active context cleared"), nil
}
