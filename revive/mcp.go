package revive

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domstate/kit"
)

// RegisterMCP registers the revive tools on an MCP server.
func (c *Controller) RegisterMCP(srv *mcp.Server) {
	ep := newEndpoints(c)
	label := map[string]any{"type": "string", "description": "Label the snapshots are stored under"}

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_capture",
		Description: "Capture the state of elements by id and store it under a label. batch=true stores an ordered batch for revive_restore_all; otherwise exactly one id is expected.",
		InputSchema: inputSchema(map[string]any{
			"label": label,
			"ids":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Element ids"},
			"batch": map[string]any{"type": "boolean", "description": "Store as a batch"},
		}, []string{"label", "ids"}),
	}, ep.capture, kit.DecodeArgs[captureReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_restore",
		Description: "Restore the single element snapshot stored under a label.",
		InputSchema: inputSchema(map[string]any{"label": label}, []string{"label"}),
	}, ep.restore, kit.DecodeArgs[labelReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_restore_all",
		Description: "Restore every snapshot of the batch stored under a label. Failing items are skipped and reported; the others are still applied.",
		InputSchema: inputSchema(map[string]any{"label": label}, []string{"label"}),
	}, ep.restoreAll, kit.DecodeArgs[labelReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_labels",
		Description: "List stored labels.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.labels, kit.DecodeArgs[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_clear",
		Description: "Remove every stored label.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.clear, kit.DecodeArgs[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "revive_drift",
		Description: "Compare the snapshots stored under a label with the live elements and list the fields that changed.",
		InputSchema: inputSchema(map[string]any{"label": label}, []string{"label"}),
	}, ep.drift, kit.DecodeArgs[labelReq]())
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
