// Package mcp implements the Model Context Protocol (MCP) server for kbridge.
//
// The MCP server exposes four tools to AI assistants:
//   - search_knowledge_base: Search uploaded documents with natural language queries
//   - upload_documents: Push local files into the knowledge base
//   - compare_strategies: Run one query under several strategies side by side
//   - get_ledger_status: Inspect the local upload ledger
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output. Stdout
// carries protocol frames only; all logging goes to stderr or the configured
// log file.
//
// # Basic Usage
//
// The MCP server is started via the mcp command:
//
//	kbridge mcp
//
// It then listens on stdin for MCP protocol messages and writes responses to stdout.
//
// # Tool: search_knowledge_base
//
// Search the knowledge base:
//
//	Request:
//	{
//	  "name": "search_knowledge_base",
//	  "arguments": {
//	    "query": "warranty period",
//	    "strategy": "merged",
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "query": "warranty period",
//	  "strategy": "merged",
//	  "count": 2,
//	  "results": [
//	    {"text": "The warranty lasts two years...", "score": 0.91, "source": "manual.pdf"},
//	    {"text": "Claims are filed online...", "score": 0.74, "source": "faq.pdf"}
//	  ]
//	}
//
// # Tool: upload_documents
//
// Upload a file or directory:
//
//	Request:
//	{
//	  "name": "upload_documents",
//	  "arguments": {
//	    "path": "/home/user/docs",
//	    "recursive": true,
//	    "wait": true
//	  }
//	}
//
//	Response:
//	{
//	  "batch_id": "2f1c...",
//	  "uploaded": 4,
//	  "skipped": 11,
//	  "failed": 0,
//	  "timed_out": 0,
//	  "duration_ms": 5210,
//	  "outcomes": [
//	    {"path": "/home/user/docs/intro.md", "status": "uploaded", "remote_id": "res-7", "job_id": "job-41"}
//	  ]
//	}
//
// # Tool: compare_strategies
//
// Compare how strategies rank the same query:
//
//	Request:
//	{
//	  "name": "compare_strategies",
//	  "arguments": {
//	    "query": "quarterly revenue",
//	    "limit": 5
//	  }
//	}
//
//	Response:
//	{
//	  "query": "quarterly revenue",
//	  "cached": false,
//	  "elapsed_ms": 142,
//	  "panels": [
//	    {"strategy": "semantic", "count": 3, "results": [...]},
//	    {"strategy": "hybrid", "count": 2, "results": [...]},
//	    {"strategy": "merged", "count": 4, "results": [...]}
//	  ],
//	  "insights": {
//	    "counts": {"semantic": 3, "hybrid": 2, "merged": 4},
//	    "most_results": "merged",
//	    "highest_avg_score": "semantic",
//	    "overlap": ["reports/q3.pdf"]
//	  }
//	}
//
// Repeating an identical comparison is served from the session cache with
// "cached": true.
//
// # Tool: get_ledger_status
//
// Inspect the upload ledger:
//
//	Request:
//	{
//	  "name": "get_ledger_status",
//	  "arguments": {"limit": 5}
//	}
//
//	Response:
//	{
//	  "ledger": {"path": "/home/user/.kbridge/ledger.db", "driver": "sqlite"},
//	  "statistics": {"tracked_files": 15, "confirmed": 14, "pending": 1},
//	  "recent_files": [
//	    {"path": "/home/user/docs/intro.md", "confirmed": true, "remote_id": "res-7", "updated_at": "2025-11-02T10:15:04Z"}
//	  ]
//	}
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "kbridge": {
//	      "command": "/usr/local/bin/kbridge",
//	      "args": ["mcp"],
//	      "env": {
//	        "KBRIDGE_KB_URL": "https://kb.example.com",
//	        "KBRIDGE_KB_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Parameter problems are returned as standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid strategy",
//	    "data": {
//	      "param": "strategy",
//	      "value": "fuzzy",
//	      "allowed": ["semantic", "hybrid", "merged"]
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (ledger unavailable)
//   - -32004: Query parameter is empty
//
// Remote-service failures are reported as tool errors with a short message
// ("search failed", "upload failed"); the underlying detail is logged but
// never sent to the client.
package mcp
