package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/ops"
	"github.com/minimalcad/mcad/internal/session"
	"github.com/minimalcad/mcad/internal/shape"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	store   *document.Store
	session *session.Manager
	cfg     *config.Config
	conv    ops.Converter
}

// NewHandlers creates a new Handlers instance. conv may be nil when STEP
// conversion is not configured.
func NewHandlers(db *sql.DB, store *document.Store, cfg *config.Config, conv ops.Converter) *Handlers {
	return &Handlers{
		db:      db,
		store:   store,
		session: session.New(store),
		cfg:     cfg,
		conv:    conv,
	}
}

// Request types for each tool

// ShapeListRequest represents the arguments for shape_list.
type ShapeListRequest struct {
	IncludeGhosts bool `json:"include_ghosts,omitempty"`
}

// IDRequest represents the arguments of tools addressed by one shape ID.
type IDRequest struct {
	ID string `json:"id"`
}

// ShapeCreateRequest represents the arguments for shape_create.
type ShapeCreateRequest struct {
	Type string `json:"type"`
}

// ShapeDeleteRequest represents the arguments for shape_delete.
type ShapeDeleteRequest struct {
	ID      string `json:"id"`
	Confirm bool   `json:"confirm"`
}

// PathRequest represents the arguments for import and export tools.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

// ProjectSaveRequest represents the arguments for project_save.
type ProjectSaveRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private,omitempty"`
	AccessKey   string `json:"access_key,omitempty"`
}

// ProjectLoadRequest represents the arguments for project_load.
type ProjectLoadRequest struct {
	ID        string `json:"id"`
	AccessKey string `json:"access_key,omitempty"`
}

// ProjectListRequest represents the arguments for project_list.
type ProjectListRequest struct {
	Mine   bool `json:"mine,omitempty"`
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
}

// ProjectDeleteRequest represents the arguments for project_delete.
type ProjectDeleteRequest struct {
	ID        string `json:"id"`
	AccessKey string `json:"access_key,omitempty"`
	Confirm   bool   `json:"confirm"`
}

// Handler implementations

// HandleShapeList handles the shape_list tool call.
func (h *Handlers) HandleShapeList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShapeListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ops.ListShapes(h.store, ops.ListShapesInput{IncludeGhosts: input.IncludeGhosts}))
}

// HandleShapeGet handles the shape_get tool call.
func (h *Handlers) HandleShapeGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.GetShape(h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShapeCreate handles the shape_create tool call.
func (h *Handlers) HandleShapeCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShapeCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	kind, ok := shape.ParseKind(input.Type)
	if !ok {
		return errorResult(errors.NewUnsupportedShape(input.Type)), nil
	}

	result, err := h.session.Create(ctx, kind)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEditBegin handles the shape_edit_begin tool call.
func (h *Handlers) HandleEditBegin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := h.session.Begin(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEditPreview handles the shape_edit_preview tool call.
func (h *Handlers) HandleEditPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[session.Patch](req)
	if err != nil {
		return errorResult(err), nil
	}

	f, ok := h.session.Fields(input)
	if !ok {
		return successResult(&session.Result{State: session.Idle})
	}
	result, err := h.session.Preview(ctx, f)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEditCommit handles the shape_edit_commit tool call.
func (h *Handlers) HandleEditCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[session.Patch](req)
	if err != nil {
		return errorResult(err), nil
	}

	f, ok := h.session.Fields(input)
	if !ok {
		return successResult(&session.Result{State: session.Idle})
	}
	result, err := h.session.Commit(ctx, f)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEditDiscard handles the shape_edit_discard tool call.
func (h *Handlers) HandleEditDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.session.Discard(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShapeDelete handles the shape_delete tool call.
func (h *Handlers) HandleShapeDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShapeDeleteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := h.session.Delete(ctx, input.ID, input.Confirm)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDocumentImport handles the document_import tool call.
func (h *Handlers) HandleDocumentImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ImportDocument(ctx, h.store, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDocumentExport handles the document_export tool call.
func (h *Handlers) HandleDocumentExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ExportDocument(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMeshExport handles the mesh_export tool call.
func (h *Handlers) HandleMeshExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ExportMesh(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStepConvert handles the step_convert tool call.
func (h *Handlers) HandleStepConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ConvertToStep(ctx, h.store, h.conv, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectSave handles the project_save tool call.
func (h *Handlers) HandleProjectSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectSaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SaveProject(ctx, h.db, h.store, h.cfg, ops.SaveProjectInput{
		ID:          input.ID,
		Name:        input.Name,
		Description: input.Description,
		Private:     input.Private,
		AccessKey:   input.AccessKey,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectLoad handles the project_load tool call.
func (h *Handlers) HandleProjectLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectLoadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.LoadProject(ctx, h.db, h.store, ops.LoadProjectInput{
		ID:        input.ID,
		AccessKey: input.AccessKey,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectList handles the project_list tool call.
func (h *Handlers) HandleProjectList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListProjects(ctx, h.db, h.cfg, ops.ListProjectsInput{
		Mine:   input.Mine,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectDelete handles the project_delete tool call.
func (h *Handlers) HandleProjectDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectDeleteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.DeleteProject(ctx, h.db, ops.DeleteProjectInput{
		ID:        input.ID,
		AccessKey: input.AccessKey,
		Confirm:   input.Confirm,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// decode binds the tool arguments to T by round-tripping them through JSON,
// so arguments of the wrong JSON type are rejected rather than coerced.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var v T
	raw, err := json.Marshal(req.GetArguments())
	if err == nil {
		err = json.Unmarshal(raw, &v)
	}
	if err != nil {
		return v, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return v, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cadErr *errors.CadError
	if stderrors.As(err, &cadErr) {
		errorObj := map[string]any{
			"code":    cadErr.Code,
			"message": cadErr.Message,
			"status":  cadErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if cadErr.Code != errors.ErrInternal && cadErr.Details != nil {
			errorObj["details"] = cadErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
