package mcp

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/ops"
)

// KnownTypes are the tool groups accepted by the disabled_types setting. A
// tool belongs to the group named by the prefix before its first underscore.
var KnownTypes = []string{"shape", "document", "mesh", "step", "project"}

type tool struct {
	def  mcp.Tool
	call func(*Handlers, context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// bind reloads the working document before each call so the server sees
// edits made by CLI commands running alongside it.
func (t tool) bind(h *Handlers) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := h.store.Refresh(ctx); err != nil {
			return errorResult(err), nil
		}
		return t.call(h, ctx, req)
	}
}

// tools is every tool the server can expose, in listing order.
var tools = []tool{
	{shapeListToolDef, (*Handlers).HandleShapeList},
	{shapeGetToolDef, (*Handlers).HandleShapeGet},
	{shapeCreateToolDef, (*Handlers).HandleShapeCreate},
	{shapeEditBeginToolDef, (*Handlers).HandleEditBegin},
	{shapeEditPreviewToolDef, (*Handlers).HandleEditPreview},
	{shapeEditCommitToolDef, (*Handlers).HandleEditCommit},
	{shapeEditDiscardToolDef, (*Handlers).HandleEditDiscard},
	{shapeDeleteToolDef, (*Handlers).HandleShapeDelete},
	{documentImportToolDef, (*Handlers).HandleDocumentImport},
	{documentExportToolDef, (*Handlers).HandleDocumentExport},
	{meshExportToolDef, (*Handlers).HandleMeshExport},
	{stepConvertToolDef, (*Handlers).HandleStepConvert},
	{projectSaveToolDef, (*Handlers).HandleProjectSave},
	{projectLoadToolDef, (*Handlers).HandleProjectLoad},
	{projectListToolDef, (*Handlers).HandleProjectList},
	{projectDeleteToolDef, (*Handlers).HandleProjectDelete},
}

// AllToolNames returns the name of every tool.
func AllToolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.def.Name
	}
	return names
}

// ValidateDisabledTools returns the entries of names that are not tools.
func ValidateDisabledTools(names []string) []string {
	return unknownOf(names, AllToolNames())
}

// ValidateDisabledTypes returns the entries of names that are not in
// KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	return unknownOf(names, KnownTypes)
}

func unknownOf(names, known []string) []string {
	var unknown []string
	for _, n := range names {
		if !slices.Contains(known, n) {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

// GetTypeForTool returns the group of a tool name, "" if it has none.
func GetTypeForTool(name string) string {
	group, _, ok := strings.Cut(name, "_")
	if !ok {
		return ""
	}
	return group
}

func disabled(cfg *config.Config, name string) bool {
	return slices.Contains(cfg.DisabledTools, name) ||
		slices.Contains(cfg.DisabledTypes, GetTypeForTool(name))
}

// NewServer builds an MCP server exposing every tool not switched off by
// cfg.DisabledTools or cfg.DisabledTypes. conv may be nil.
func NewServer(db *sql.DB, store *document.Store, cfg *config.Config, conv ops.Converter, version string) *server.MCPServer {
	s := server.NewMCPServer("mcad", version, server.WithToolCapabilities(true))
	h := NewHandlers(db, store, cfg, conv)

	for _, t := range tools {
		if !disabled(cfg, t.def.Name) {
			s.AddTool(t.def, t.bind(h))
		}
	}
	return s
}

// Run serves the tools over stdin/stdout until the client disconnects.
func Run(db *sql.DB, store *document.Store, cfg *config.Config, conv ops.Converter, version string) error {
	return server.ServeStdio(NewServer(db, store, cfg, conv, version))
}
