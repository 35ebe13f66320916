// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the document index for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/serial"
	"github.com/laomst/lmrc/internal/verifier"
	"github.com/laomst/lmrc/internal/workspace"
)

// Server wraps the MCP server with index tools.
type Server struct {
	mcp      *server.MCPServer
	ws       *workspace.FS
	store    *pathindex.Store
	verifier *verifier.Verifier
}

// New creates a new MCP server with all index tools registered.
func New(ws *workspace.FS, store *pathindex.Store, v *verifier.Verifier) *Server {
	s := &Server{ws: ws, store: store, verifier: v}

	s.mcp = server.NewMCPServer(
		"lmrc",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_serial",
		mcp.WithDescription("Resolve a document serial to its workspace-relative path."),
		mcp.WithString("serial", mcp.Required(), mcp.Description("Eight character document serial (e.g. ab3k9x2q)")),
	), s.resolveSerial)

	s.mcp.AddTool(mcp.NewTool("lookup_path",
		mcp.WithDescription("Find the serial(s) registered for a workspace-relative document path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Rooted path of the document (e.g. /topics/note.md)")),
	), s.lookupPath)

	s.mcp.AddTool(mcp.NewTool("list_index",
		mcp.WithDescription("List every serial to path mapping in the index."),
	), s.listIndex)

	s.mcp.AddTool(mcp.NewTool("verify_index",
		mcp.WithDescription("Run a verification pass repairing drift between the index and the document tree, and return the repair report."),
	), s.verifyIndex)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of an indexed document by serial."),
		mcp.WithString("serial", mcp.Required(), mcp.Description("Serial of the document to read")),
	), s.readDocument)

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

func (s *Server) resolveSerial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sn, err := req.RequireString("serial")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !serial.Valid(sn) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid serial: %s", sn)), nil
	}
	idx, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, ok := idx[sn]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", sn)), nil
	}
	return mcp.NewToolResultText(rel), nil
}

func (s *Server) lookupPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	idx, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	serials := idx.SerialsForPath(path)
	if len(serials) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", path)), nil
	}
	sort.Strings(serials)
	return mcp.NewToolResultText(strings.Join(serials, "\n")), nil
}

func (s *Server) listIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(idx, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) verifyIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.verifier.Run()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sn, err := req.RequireString("serial")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, ok := idx[sn]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", sn)), nil
	}
	abs, err := s.ws.FromRooted(rel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.ws.Read(abs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", rel)), nil
	}
	return mcp.NewToolResultText(content), nil
}
