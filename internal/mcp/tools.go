package mcp

import "github.com/mark3labs/mcp-go/mcp"

var vec3Schema = map[string]any{"type": "number"}

var commandSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type": map[string]any{"type": "string", "enum": []string{"moveTo", "lineTo", "quadraticCurveTo"}},
		"x":    map[string]any{"type": "number"},
		"y":    map[string]any{"type": "number"},
		"cpX":  map[string]any{"type": "number", "description": "Midpoint handle the curve passes through (quadraticCurveTo only)"},
		"cpY":  map[string]any{"type": "number"},
		"new":  map[string]any{"type": "boolean", "description": "Start a separate outline at this point"},
	},
	"required": []string{"type", "x", "y"},
}

// fieldOptions are the editable form fields shared by preview and commit.
func fieldOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithNumber("length", mcp.Description("Box length along X (cm)")),
		mcp.WithNumber("width", mcp.Description("Box width along Y (cm)")),
		mcp.WithNumber("height", mcp.Description("Box or cylinder height, or freeform extrusion height (cm)")),
		mcp.WithNumber("radius", mcp.Description("Cylinder radius (cm)")),
		mcp.WithNumber("curve_segments", mcp.Description("Cylinder tessellation segments (3-10000)")),
		mcp.WithArray("position", mcp.Description("[x, y, z] translation (cm)"), mcp.Items(vec3Schema), mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("rotation", mcp.Description("[x, y, z] rotation in degrees, applied X then Y then Z"), mcp.Items(vec3Schema), mcp.MinItems(3), mcp.MaxItems(3)),
		mcp.WithArray("commands", mcp.Description("Freeform outline commands; replaces the whole outline"), mcp.Items(commandSchema)),
	}
}

var shapeListToolDef = mcp.NewTool("shape_list",
	mcp.WithDescription("List the shapes of the working document in order, and the ID of the shape being edited if any."),
	mcp.WithBoolean("include_ghosts", mcp.Description("Include the frozen pre-edit snapshot of the shape being edited")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var shapeGetToolDef = mcp.NewTool("shape_get",
	mcp.WithDescription("Get one shape of the working document by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Shape ID")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var shapeCreateToolDef = mcp.NewTool("shape_create",
	mcp.WithDescription("Add a new shape with default dimensions and start editing it. Any other edit session is discarded."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Shape type"), mcp.Enum("box", "cylinder", "freeform")),
)

var shapeEditBeginToolDef = mcp.NewTool("shape_edit_begin",
	mcp.WithDescription("Start editing a shape. Any other edit session is discarded."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Shape ID")),
)

var shapeEditPreviewToolDef = mcp.NewTool("shape_edit_preview",
	append([]mcp.ToolOption{
		mcp.WithDescription("Apply field values to the shape being edited without ending the session. Omitted fields keep their current value."),
	}, fieldOptions()...)...,
)

var shapeEditCommitToolDef = mcp.NewTool("shape_edit_commit",
	append([]mcp.ToolOption{
		mcp.WithDescription("Store field values on the shape being edited and end the session. Omitted fields keep their current value."),
	}, fieldOptions()...)...,
)

var shapeEditDiscardToolDef = mcp.NewTool("shape_edit_discard",
	mcp.WithDescription("End the edit session and restore the shape to its value before editing began."),
)

var shapeDeleteToolDef = mcp.NewTool("shape_delete",
	mcp.WithDescription("Delete a shape from the working document."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Shape ID")),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)

var documentImportToolDef = mcp.NewTool("document_import",
	mcp.WithDescription("Replace the working document with a model-data JSON file. The file is validated fully before anything changes."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .json file in ~/.mcad/exports or an allowed directory")),
	mcp.WithDestructiveHintAnnotation(true),
)

var documentExportToolDef = mcp.NewTool("document_export",
	mcp.WithDescription("Write the working document as model-data JSON."),
	mcp.WithString("path", mcp.Description("Output .json path (default: ~/.mcad/exports/model-data-<timestamp>.json)")),
)

var meshExportToolDef = mcp.NewTool("mesh_export",
	mcp.WithDescription("Write the working document as an ASCII STL mesh in millimeters."),
	mcp.WithString("path", mcp.Description("Output .stl path (default: ~/.mcad/exports/model-<timestamp>.stl)")),
)

var stepConvertToolDef = mcp.NewTool("step_convert",
	mcp.WithDescription("Mesh the working document and convert it to STEP using the configured conversion service."),
	mcp.WithString("path", mcp.Description("Output .step path (default: ~/.mcad/exports/model-<timestamp>.step)")),
)

var projectSaveToolDef = mcp.NewTool("project_save",
	mcp.WithDescription("Save the working document as a project. Private projects return an access key needed to load them."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
	mcp.WithString("description", mcp.Description("Markdown description")),
	mcp.WithString("id", mcp.Description("Existing project ID to overwrite")),
	mcp.WithBoolean("private", mcp.Description("Require an access key to load")),
	mcp.WithString("access_key", mcp.Description("Access key of the private project being overwritten")),
)

var projectLoadToolDef = mcp.NewTool("project_load",
	mcp.WithDescription("Replace the working document with a saved project."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Project ID")),
	mcp.WithString("access_key", mcp.Description("Access key for private projects")),
	mcp.WithDestructiveHintAnnotation(true),
)

var projectListToolDef = mcp.NewTool("project_list",
	mcp.WithDescription("List public projects, or your own projects, most recently updated first."),
	mcp.WithBoolean("mine", mcp.Description("List projects saved by the configured owner")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var projectDeleteToolDef = mcp.NewTool("project_delete",
	mcp.WithDescription("Delete a saved project."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Project ID")),
	mcp.WithString("access_key", mcp.Description("Access key for private projects")),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)
