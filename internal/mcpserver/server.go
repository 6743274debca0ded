// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes semwiki lookups for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/wikiservice"
)

const formatURI = "semwiki://annotation-format"

// Server wraps the MCP server with semwiki tools.
type Server struct {
	mcp *server.MCPServer
	svc *wikiservice.Service
}

// New creates a new MCP server with all semwiki tools registered.
func New(svc *wikiservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"semwiki",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	listParams := []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Max number of results (0 for the configured default)")),
		mcp.WithNumber("offset", mcp.Description("Number of results to skip")),
		mcp.WithString("prefix", mcp.Description("Only properties whose name starts with this text")),
		mcp.WithString("contains", mcp.Description("Only properties whose name contains this text")),
		mcp.WithBoolean("sort_by_name", mcp.Description("Order by name instead of usage count")),
		mcp.WithBoolean("descending", mcp.Description("Reverse the sort order")),
	}

	s.mcp.AddTool(mcp.NewTool("undeclared_properties", append([]mcp.ToolOption{
		mcp.WithDescription("List properties that are used on pages but have no declaration page, with usage counts."),
	}, listParams...)...), s.undeclaredProperties)

	s.mcp.AddTool(mcp.NewTool("property_usage", append([]mcp.ToolOption{
		mcp.WithDescription("List every used property with its usage count, most used first."),
	}, listParams...)...), s.propertyUsage)

	s.mcp.AddTool(mcp.NewTool("unused_properties", append([]mcp.ToolOption{
		mcp.WithDescription("List declared properties that no page uses."),
	}, listParams...)...), s.unusedProperties)

	s.mcp.AddTool(mcp.NewTool("map_resource",
		mcp.WithDescription("Return the export URI of a page, property or subobject."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title, optionally prefixed with a namespace (e.g. Property:Has_name)")),
		mcp.WithNumber("ns", mcp.Description("Namespace id; when set the title is taken as is")),
		mcp.WithString("iw", mcp.Description("Optional interwiki prefix")),
		mcp.WithString("subobject", mcp.Description("Optional subobject name")),
		mcp.WithBoolean("aux", mcp.Description("Return the auxiliary resource of the page")),
	), s.mapResource)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the annotations and inline query references of a vault page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. Property/Has_name.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("get_annotation_format",
		mcp.WithDescription("Returns the page annotation format understood by the indexer."),
	), s.getAnnotationFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Annotation Format",
			mcp.WithResourceDescription("How pages declare properties, types, imports and subobjects."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func listQuery(req mcp.CallToolRequest) wikiservice.ListQuery {
	args := req.GetArguments()
	var q wikiservice.ListQuery
	if v, ok := args["limit"].(float64); ok {
		q.Limit = int(v)
	}
	if v, ok := args["offset"].(float64); ok {
		q.Offset = int(v)
	}
	if v, ok := args["sort_by_name"].(bool); ok {
		q.SortByName = v
	}
	if v, ok := args["descending"].(bool); ok {
		q.Descending = v
	}
	q.Prefix, _ = args["prefix"].(string)
	q.Contains, _ = args["contains"].(string)
	return q
}

type listFunc func(ctx context.Context, q wikiservice.ListQuery) (*wikiservice.PropertyList, error)

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func runList(ctx context.Context, req mcp.CallToolRequest, fn listFunc) (*mcp.CallToolResult, error) {
	list, err := fn(ctx, listQuery(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) undeclaredProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runList(ctx, req, s.svc.UndeclaredProperties)
}

func (s *Server) propertyUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runList(ctx, req, s.svc.PropertyUsage)
}

func (s *Server) unusedProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runList(ctx, req, s.svc.UnusedProperties)
}

func (s *Server) mapResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	page := dataitem.NewWikiPageFromText(title, dataitem.NSMain)
	if ns, ok := args["ns"].(float64); ok {
		page = dataitem.NewWikiPage(title, int(ns), "", "")
	}
	iw, _ := args["iw"].(string)
	sub, _ := args["subobject"].(string)
	page = dataitem.NewWikiPage(page.DBKey(), page.Namespace(), iw, sub)
	aux, _ := args["aux"].(bool)

	res, err := s.svc.MapResource(ctx, page, aux)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.RenderPage(ctx, path, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) getAnnotationFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AnnotationFormat), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     AnnotationFormat,
		},
	}, nil
}
