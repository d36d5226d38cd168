package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// Limits bounds what a caller may ask for when it leaves a field unset or
// sets it too high.
type Limits struct {
	DefaultSearchLimit int
	MaxSearchLimit     int
	DefaultDepth       int
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// toolFailure renders err as "<kind>: <message>". Storage and internal
// failures are logged; caller mistakes are not.
func toolFailure(log *zap.SugaredLogger, tool string, err error) (*mcp.CallToolResult, any, error) {
	kind := errors.Kind(err)
	if kind == errors.KindStorage || kind == errors.KindInternal {
		log.Warnw("Tool failed", "tool", tool, "error", err)
	} else {
		log.Debugw("Tool rejected request", "tool", tool, "kind", kind, "error", err)
	}
	return toolError("%s: %s", kind, errors.Message(err)), nil, nil
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("%s: marshal result: %v", errors.KindInternal, err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// metadata converts free-form JSON into validated metadata.
func metadata(m map[string]any) (models.Metadata, error) {
	if m == nil {
		return nil, nil
	}
	md, err := models.MetadataFromAny(m)
	if err != nil {
		return nil, errors.Validationf("metadata: %v", err)
	}
	return md, nil
}
