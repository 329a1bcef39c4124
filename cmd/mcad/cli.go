package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli/v2"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/ops"
	"github.com/minimalcad/mcad/internal/session"
	"github.com/minimalcad/mcad/internal/shape"
	"github.com/minimalcad/mcad/internal/web"
)

// maxStdinBytes bounds outline commands piped on stdin.
const maxStdinBytes = 1 << 20

// env holds what the commands operate on.
type env struct {
	db    *sql.DB
	docs  document.Persistence
	store *document.Store
	cfg   *config.Config
	conv  ops.Converter
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "mcad",
		Usage:   "Parametric shape documents with STL and STEP export",
		Version: Version,
		Commands: []*cli.Command{
			newCmd(e),
			listCmd(e),
			showCmd(e),
			editCmd(e),
			deleteCmd(e),
			importCmd(e),
			exportCmd(e),
			projectCmd(e),
			serveCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newCmd creates the new command.
func newCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Add a shape with default dimensions and start editing it",
		ArgsUsage: "<box|cylinder|freeform>",
		Action: func(c *cli.Context) error {
			kind, ok := shape.ParseKind(c.Args().First())
			if !ok {
				return outputError(errors.NewInvalidRequest("shape type must be box, cylinder or freeform"))
			}

			output, err := session.New(e.store).Create(c.Context, kind)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the shapes of the working document",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ghosts", Usage: "Include the pre-edit snapshot of the shape being edited"},
		},
		Action: func(c *cli.Context) error {
			return outputJSON(ops.ListShapes(e.store, ops.ListShapesInput{IncludeGhosts: c.Bool("ghosts")}))
		},
	}
}

// showCmd creates the show command.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one shape",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.GetShape(e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fieldFlags are the form fields accepted by edit preview and edit commit.
func fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
		&cli.Float64Flag{Name: "length", Usage: "Box length along X (cm)"},
		&cli.Float64Flag{Name: "width", Usage: "Box width along Y (cm)"},
		&cli.Float64Flag{Name: "height", Usage: "Height or extrusion height (cm)"},
		&cli.Float64Flag{Name: "radius", Usage: "Cylinder radius (cm)"},
		&cli.IntFlag{Name: "segments", Usage: "Cylinder tessellation segments"},
		&cli.StringFlag{Name: "position", Aliases: []string{"p"}, Usage: "Translation as x,y,z (cm)"},
		&cli.StringFlag{Name: "rotation", Aliases: []string{"r"}, Usage: "Rotation as x,y,z degrees"},
		&cli.StringFlag{Name: "commands", Usage: "Outline commands as a JSON array, or - to read them from stdin"},
	}
}

// patchFromFlags builds a patch from the field flags the user set.
func patchFromFlags(c *cli.Context) (session.Patch, error) {
	var p session.Patch
	if c.IsSet("name") {
		v := c.String("name")
		p.Name = &v
	}
	floats := []struct {
		flag string
		dst  **float64
	}{
		{"length", &p.Length},
		{"width", &p.Width},
		{"height", &p.Height},
		{"radius", &p.Radius},
	}
	for _, f := range floats {
		if c.IsSet(f.flag) {
			v := c.Float64(f.flag)
			*f.dst = &v
		}
	}
	if c.IsSet("segments") {
		v := c.Int("segments")
		p.CurveSegments = &v
	}
	if c.IsSet("position") {
		v, err := parseVec3(c.String("position"))
		if err != nil {
			return p, errors.NewInvalidRequest("position: " + err.Error())
		}
		p.Position = &v
	}
	if c.IsSet("rotation") {
		v, err := parseVec3(c.String("rotation"))
		if err != nil {
			return p, errors.NewInvalidRequest("rotation: " + err.Error())
		}
		p.Rotation = &v
	}
	if c.IsSet("commands") {
		raw := c.String("commands")
		if raw == "-" {
			var err error
			if raw, err = readStdin(maxStdinBytes); err != nil {
				return p, errors.NewInvalidRequest(err.Error())
			}
		}
		var cmds []shape.Command
		if err := json.Unmarshal([]byte(raw), &cmds); err != nil {
			return p, errors.NewMalformedInput("commands: " + err.Error())
		}
		p.Commands = &cmds
	}
	return p, nil
}

// editCmd creates the edit command and its session subcommands.
func editCmd(e *env) *cli.Command {
	apply := func(commit bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			patch, err := patchFromFlags(c)
			if err != nil {
				return outputError(err)
			}
			m := session.New(e.store)
			f, ok := m.Fields(patch)
			if !ok {
				return outputJSON(&session.Result{State: session.Idle})
			}

			var output *session.Result
			if commit {
				output, err = m.Commit(c.Context, f)
			} else {
				output, err = m.Preview(c.Context, f)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}
	}

	return &cli.Command{
		Name:  "edit",
		Usage: "Edit a shape through a preview session",
		Subcommands: []*cli.Command{
			{
				Name:      "begin",
				Usage:     "Start editing a shape",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return outputError(errors.NewInvalidRequest("id is required"))
					}
					output, err := session.New(e.store).Begin(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:   "preview",
				Usage:  "Apply field values without ending the session",
				Flags:  fieldFlags(),
				Action: apply(false),
			},
			{
				Name:   "commit",
				Usage:  "Store field values and end the session",
				Flags:  fieldFlags(),
				Action: apply(true),
			},
			{
				Name:  "discard",
				Usage: "End the session and restore the shape",
				Action: func(c *cli.Context) error {
					output, err := session.New(e.store).Discard(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a shape",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			output, err := session.New(e.store).Delete(c.Context, id, c.Bool("yes"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replace the working document with a model-data JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ImportDocument(c.Context, e.store, e.cfg, ops.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	pathFlag := func(def string) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.mcad/exports/" + def + ")"},
		}
	}

	return &cli.Command{
		Name:  "export",
		Usage: "Write the working document to a file",
		Subcommands: []*cli.Command{
			{
				Name:  "json",
				Usage: "Export model-data JSON",
				Flags: pathFlag("model-data-<timestamp>.json"),
				Action: func(c *cli.Context) error {
					output, err := ops.ExportDocument(c.Context, e.store, e.cfg, ops.ExportInput{Path: c.String("path")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "stl",
				Usage: "Export an ASCII STL mesh in millimeters",
				Flags: pathFlag("model-<timestamp>.stl"),
				Action: func(c *cli.Context) error {
					output, err := ops.ExportMesh(c.Context, e.store, e.cfg, ops.ExportInput{Path: c.String("path")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "step",
				Usage: "Convert the mesh to STEP with the configured service",
				Flags: pathFlag("model-<timestamp>.step"),
				Action: func(c *cli.Context) error {
					output, err := ops.ConvertToStep(c.Context, e.store, e.conv, e.cfg, ops.ExportInput{Path: c.String("path")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// projectCmd creates the project command and its subcommands.
func projectCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Save and load named projects",
		Subcommands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Save the working document as a project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Project name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Markdown description"},
					&cli.StringFlag{Name: "id", Usage: "Existing project ID to overwrite"},
					&cli.BoolFlag{Name: "private", Usage: "Require an access key to load"},
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Access key of the private project being overwritten"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.SaveProject(c.Context, e.db, e.store, e.cfg, ops.SaveProjectInput{
						ID:          c.String("id"),
						Name:        c.String("name"),
						Description: c.String("description"),
						Private:     c.Bool("private"),
						AccessKey:   c.String("key"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "load",
				Usage:     "Replace the working document with a saved project",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Access key for private projects"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.LoadProject(c.Context, e.db, e.store, ops.LoadProjectInput{
						ID:        c.Args().First(),
						AccessKey: c.String("key"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List public projects, most recently updated first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mine", Usage: "List projects saved by the configured owner"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListProjects(c.Context, e.db, e.cfg, ops.ListProjectsInput{
						Mine:   c.Bool("mine"),
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved project",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Access key for private projects"},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteProject(c.Context, e.db, ops.DeleteProjectInput{
						ID:        c.Args().First(),
						AccessKey: c.String("key"),
						Confirm:   c.Bool("yes"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(e.db, e.docs, e.cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			return runMCP(e)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CadError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("invalid number %q", p)
		}
		v[i] = f
	}
	return v, nil
}
