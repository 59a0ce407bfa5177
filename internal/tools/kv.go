package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/kvtrack/internal/store"
)

// KVStoreHandler returns the MCP tool handler for the "kv-store" tool.
// The "as" argument picks how the value is typed before storing.
func KVStoreHandler(c *store.Cache) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := parseValue(raw, req.GetString("as", "str"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := c.Store(ctx, value)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(key), nil
	}
}

func parseValue(raw, as string) (any, error) {
	switch as {
	case "str":
		return raw, nil
	case "int":
		return strconv.Atoi(raw)
	case "float":
		return strconv.ParseFloat(raw, 64)
	default:
		return nil, fmt.Errorf("unknown type %q", as)
	}
}

// KVGetHandler returns the MCP tool handler for the "kv-get" tool.
func KVGetHandler(c *store.Cache) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var (
			text string
			ok   bool
		)
		switch as := req.GetString("as", "str"); as {
		case "str":
			text, ok, err = c.GetStr(ctx, key)
		case "int":
			var n int
			n, ok, err = c.GetInt(ctx, key)
			text = strconv.Itoa(n)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown type %q", as)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("key %s not found", key)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// KVReplayHandler returns the MCP tool handler for the "kv-replay" tool.
func KVReplayHandler(c *store.Cache) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		if err := c.Replay(ctx, &sb); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
