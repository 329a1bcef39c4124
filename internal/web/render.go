package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yuin/goldmark"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/ops"
	"github.com/minimalcad/mcad/internal/project"
	"github.com/minimalcad/mcad/internal/shape"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "shapes", "projects"
}

// ShapeRow is the display form of one shape.
type ShapeRow struct {
	ID         string
	Name       string
	Kind       string
	Dimensions string
	Position   mgl64.Vec3
	Rotation   mgl64.Vec3
	Editing    bool
	Supported  bool
}

// ShapesPageData is the template data for the working document page.
type ShapesPageData struct {
	PageData
	Items   []ShapeRow
	Editing string
}

// ShapePageData is the template data for a single shape.
type ShapePageData struct {
	PageData
	Shape    ShapeRow
	Commands []shape.Command
}

// ProjectsPageData is the template data for the project list page.
type ProjectsPageData struct {
	PageData
	Items      []project.Summary
	Pagination ops.Pagination
	Mine       bool
}

// ProjectPageData is the template data for the project detail page.
type ProjectPageData struct {
	PageData
	Project      project.Summary
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"formatVec":  formatVec,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"shapes":   "shapes.html",
		"shape":    "shape.html",
		"projects": "projects.html",
		"project":  "project.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var cErr *errors.CadError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}

	status := cErr.Status
	message := cErr.Message
	if cErr.Code == errors.ErrInternal {
		log.Printf("internal error: %v", err)
		message = "internal error"
	}

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// goldmark drops raw HTML by default, so descriptions cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatVec formats a vector as "x, y, z" with trailing zeros trimmed.
func formatVec(v mgl64.Vec3) string {
	return formatNum(v[0]) + ", " + formatNum(v[1]) + ", " + formatNum(v[2])
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toRow builds the display form of s.
func toRow(s shape.Shape, editing string) ShapeRow {
	row := ShapeRow{
		ID:        s.ID,
		Name:      s.Name,
		Kind:      string(s.Kind),
		Position:  s.Position,
		Rotation:  s.Rotation,
		Editing:   s.ID == editing,
		Supported: s.Kind.Supported(),
	}
	if row.Name == "" {
		row.Name = displayID(s.ID)
	}

	switch {
	case s.Box != nil:
		row.Dimensions = fmt.Sprintf("%s × %s × %s cm",
			formatNum(s.Box.Length), formatNum(s.Box.Width), formatNum(s.Box.Height))
	case s.Cylinder != nil:
		row.Dimensions = fmt.Sprintf("r %s, h %s cm, %d segments",
			formatNum(s.Cylinder.Radius), formatNum(s.Cylinder.Height), s.Cylinder.Segments())
	case s.Freeform != nil:
		row.Dimensions = fmt.Sprintf("%d commands, h %s cm",
			len(s.Freeform.Commands), formatNum(s.Freeform.ExtrudeHeight))
	default:
		row.Dimensions = "unsupported"
	}
	return row
}

// displayID returns a truncated ID for unnamed shapes.
func displayID(id string) string {
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
