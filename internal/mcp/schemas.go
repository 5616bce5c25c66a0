package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchKnowledgeBaseTool returns the tool definition for search_knowledge_base
func searchKnowledgeBaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Search the knowledge base with natural language queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: semantic (vector only), hybrid (service-side combination), or merged (client-side rank fusion)",
					"enum":        []string{"semantic", "hybrid", "merged"},
					"default":     "merged",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// uploadDocumentsTool returns the tool definition for upload_documents
func uploadDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upload_documents",
		Description: "Upload a file or directory into the knowledge base, skipping unchanged files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File or directory to upload",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into subdirectories",
					"default":     false,
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, wait for ingestion jobs to reach a terminal status",
					"default":     true,
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "Restrict directory uploads to these file extensions (e.g. [\".md\", \".pdf\"])",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// compareStrategiesTool returns the tool definition for compare_strategies
func compareStrategiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "compare_strategies",
		Description: "Run one query under several search strategies and summarize how they differ",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query to compare",
				},
				"strategies": map[string]interface{}{
					"type":        "array",
					"description": "Strategies to compare (defaults to all three)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"semantic", "hybrid", "merged"},
					},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results per strategy (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getLedgerStatusTool returns the tool definition for get_ledger_status
func getLedgerStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_ledger_status",
		Description: "Report upload ledger statistics and recently tracked files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of recent files to include (0-100)",
					"default":     10,
					"minimum":     0,
					"maximum":     100,
				},
			},
		},
	}
}
