// Package mcpserver exposes the memory and identity stores as MCP tools over
// stdio, so another agent can read and extend the journal.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/weights"
)

// Tools holds the stores behind the MCP handlers. Handlers are serialized.
type Tools struct {
	mu      sync.Mutex
	mem     store.Memory
	id      *identity.Store
	weights map[string]*weights.Store
	rank    recall.RankOptions
}

// NewTools returns handlers over the given stores.
func NewTools(mem store.Memory, id *identity.Store, ws map[string]*weights.Store, rank recall.RankOptions) *Tools {
	return &Tools{mem: mem, id: id, weights: ws, rank: rank}
}

// New builds an MCP server with every tool registered.
func New(name, version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	s.AddTool(searchTool(), t.handleSearch)
	s.AddTool(recentTool(), t.handleRecent)
	s.AddTool(topTool(), t.handleTop)
	s.AddTool(addTool(), t.handleAdd)
	s.AddTool(identityTool(), t.handleIdentity)
	s.AddTool(weightsTool(), t.handleWeights)
	return s
}

// Serve runs s on stdin and stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func searchTool() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Find stored memories most similar to a query, most similar first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to compare against stored memories"),
		),
		mcp.WithNumber("k",
			mcp.Description("Max results. Default: 3"),
		),
		mcp.WithString("kind",
			mcp.Description("Only this kind: perception, reflection, tweet or other"),
		),
	)
}

func recentTool() mcp.Tool {
	return mcp.NewTool("memory_recent",
		mcp.WithDescription("List the most recent memories, newest first."),
		mcp.WithString("kind",
			mcp.Description("Only this kind: perception, reflection, tweet or other"),
		),
		mcp.WithNumber("n",
			mcp.Description("Max results. Default: 10"),
		),
	)
}

func topTool() mcp.Tool {
	return mcp.NewTool("memory_top",
		mcp.WithDescription("Rank memories by similarity and recency. The most relevant is listed last."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to rank memories against"),
		),
		mcp.WithNumber("k",
			mcp.Description("Max results. Default: 5"),
		),
	)
}

func addTool() mcp.Tool {
	return mcp.NewTool("memory_add",
		mcp.WithDescription("Store a new memory."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Memory text"),
		),
		mcp.WithString("kind",
			mcp.Description("perception, reflection, tweet or other. Default: other"),
		),
	)
}

func identityTool() mcp.Tool {
	return mcp.NewTool("identity_get",
		mcp.WithDescription("Return the current self-summary and followed topics."),
	)
}

func weightsTool() mcp.Tool {
	return mcp.NewTool("weights_get",
		mcp.WithDescription("Return a weighted category mapping: mood, curiosity or style."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("mood, curiosity or style"),
		),
	)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func intArg(args map[string]any, name string, def int) int {
	if v, ok := args[name].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

func kindArg(args map[string]any) (model.Kind, error) {
	s, _ := args["kind"].(string)
	if s == "" {
		return "", nil
	}
	return model.ParseKind(s)
}

func (t *Tools) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	kind, err := kindArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t.mu.Lock()
	texts, err := t.mem.Retrieve(ctx, store.RetrieveParams{
		Query: query,
		K:     intArg(args, "k", store.DefaultRetrieveK),
		Kind:  kind,
	})
	t.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search: %v", err)), nil
	}
	return jsonResult(texts)
}

func (t *Tools) handleRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	kind, err := kindArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t.mu.Lock()
	texts := t.mem.Recent(kind, intArg(args, "n", 10))
	t.mu.Unlock()
	return jsonResult(texts)
}

func (t *Tools) handleTop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	t.mu.Lock()
	texts, err := recall.TopK(ctx, t.mem, query, intArg(args, "k", recall.DefaultTopK), t.rank)
	t.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to rank: %v", err)), nil
	}
	return jsonResult(texts)
}

func (t *Tools) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	text, _ := args["text"].(string)
	kind, err := kindArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if kind == "" {
		kind = model.KindOther
	}

	t.mu.Lock()
	rec, err := t.mem.AddMemory(ctx, text, kind)
	t.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
	}
	if rec == nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored %s memory %s", rec.Kind, rec.ID)), nil
}

func (t *Tools) handleIdentity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.id == nil {
		return mcp.NewToolResultError("identity not configured"), nil
	}
	return jsonResult(t.id.Get())
}

func (t *Tools) handleWeights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	name, _ := args["name"].(string)
	ws, ok := t.weights[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown weights %q", name)), nil
	}
	return jsonResult(ws.Snapshot())
}
