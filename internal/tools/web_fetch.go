package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	web "github.com/leonardcser/kvtrack/internal/web"
)

// WebFetchHandler returns the MCP tool handler for the "web-fetch" tool.
func WebFetchHandler(pages *web.PageCache) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format := req.GetString("format", "raw")

		body, err := pages.Fetch(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		switch format {
		case "raw":
			return mcp.NewToolResultText(body), nil
		case "markdown":
			ps, err := web.Summarize(url, body)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(ps.Markdown()), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
		}
	}
}

// PageCountHandler returns the MCP tool handler for the "page-count" tool.
func PageCountHandler(pages *web.PageCache) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := pages.Count(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
	}
}
