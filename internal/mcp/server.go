package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"kbridge/internal/ledger"
	"kbridge/internal/searcher"
	"kbridge/internal/uploader"
)

const (
	// ServerName is the MCP server name
	ServerName = "kbridge"
	// ServerVersion is the current server version
	ServerVersion = "0.1.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	dispatcher *searcher.Dispatcher
	comparer   *searcher.Comparer
	uploader   *uploader.Uploader
	ledger     *ledger.Ledger
	logger     *slog.Logger
}

// NewServer creates a new MCP server instance over already-constructed
// application components. The caller owns their lifecycles.
func NewServer(dispatcher *searcher.Dispatcher, comparer *searcher.Comparer, up *uploader.Uploader, led *ledger.Ledger, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:        mcpServer,
		dispatcher: dispatcher,
		comparer:   comparer,
		uploader:   up,
		ledger:     led,
		logger:     logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects. Stdout carries protocol frames only; logs go elsewhere.
func (s *Server) Serve() error {
	s.logger.Info("mcp server starting", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchKnowledgeBaseTool(), s.handleSearchKnowledgeBase)
	s.mcp.AddTool(uploadDocumentsTool(), s.handleUploadDocuments)
	s.mcp.AddTool(compareStrategiesTool(), s.handleCompareStrategies)
	s.mcp.AddTool(getLedgerStatusTool(), s.handleGetLedgerStatus)
}
