package web

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/db"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/ops"
	"github.com/minimalcad/mcad/internal/stl"
)

// Handlers serves the read-only web views.
type Handlers struct {
	db       *sql.DB
	docs     document.Persistence
	cfg      *config.Config
	renderer *Renderer
}

// openStore loads the working document fresh so the page reflects edits made
// by other processes sharing the database.
func (h *Handlers) openStore(r *http.Request) (*document.Store, error) {
	return document.Open(r.Context(), h.docs)
}

// HandleShapes handles GET /shapes.
func (h *Handlers) HandleShapes(w http.ResponseWriter, r *http.Request) {
	store, err := h.openStore(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result := ops.ListShapes(store, ops.ListShapesInput{
		IncludeGhosts: parseBoolParam(r, "include_ghosts"),
	})

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	rows := make([]ShapeRow, 0, len(result.Items))
	for _, s := range result.Items {
		if s.Ghost {
			continue
		}
		rows = append(rows, toRow(s, result.Editing))
	}

	h.renderer.renderPage(w, r, "shapes", ShapesPageData{
		PageData: PageData{
			Title:   "Shapes",
			Version: h.renderer.version,
			Nav:     "shapes",
		},
		Items:   rows,
		Editing: result.Editing,
	})
}

// HandleShape handles GET /shapes/{id}.
func (h *Handlers) HandleShape(w http.ResponseWriter, r *http.Request) {
	store, err := h.openStore(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	s, err := ops.GetShape(store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, s)
		return
	}

	editing := ""
	if s.Selected {
		editing = s.ID
	}
	row := toRow(*s, editing)
	data := ShapePageData{
		PageData: PageData{
			Title:   row.Name,
			Version: h.renderer.version,
			Nav:     "shapes",
		},
		Shape: row,
	}
	if s.Freeform != nil {
		data.Commands = s.Freeform.Commands
	}
	h.renderer.renderPage(w, r, "shape", data)
}

// HandleExportSTL handles GET /export/model.stl.
func (h *Handlers) HandleExportSTL(w http.ResponseWriter, r *http.Request) {
	store, err := h.openStore(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// Buffer so a meshing error can still produce an error response.
	var buf bytes.Buffer
	if _, err := stl.Write(&buf, store.Canonical(), ops.MeshOptions(h.cfg)); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "model/stl")
	w.Header().Set("Content-Disposition", attachment("model", ".stl"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleExportJSON handles GET /export/model-data.json.
func (h *Handlers) HandleExportJSON(w http.ResponseWriter, r *http.Request) {
	store, err := h.openStore(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ops.EncodeDocument(&buf, ops.DocumentSnapshot(store)); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment("model-data", ".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleProjects handles GET /projects.
func (h *Handlers) HandleProjects(w http.ResponseWriter, r *http.Request) {
	input := ops.ListProjectsInput{
		Mine:   parseBoolParam(r, "mine"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.ListProjects(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "projects", ProjectsPageData{
		PageData: PageData{
			Title:   "Projects",
			Version: h.renderer.version,
			Nav:     "projects",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Mine:       input.Mine,
	})
}

// HandleProject handles GET /projects/{id}. Private projects need ?key=.
func (h *Handlers) HandleProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("project ID is required"))
		return
	}

	p, err := db.GetProject(r.Context(), h.db, id, false)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			err = errors.NewPersistenceFailed("get project", err)
		}
		h.renderer.renderError(w, r, err)
		return
	}
	if err := p.Authorize(r.URL.Query().Get("key")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	summary := p.ToSummary()
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, summary)
		return
	}

	h.renderer.renderPage(w, r, "project", ProjectPageData{
		PageData: PageData{
			Title:   summary.Name,
			Version: h.renderer.version,
			Nav:     "projects",
		},
		Project:      summary,
		RenderedHTML: renderMarkdown(summary.Description),
	})
}

// attachment builds a Content-Disposition value with a timestamped filename.
func attachment(prefix, ext string) string {
	return fmt.Sprintf(`attachment; filename="%s-%s%s"`, prefix, time.Now().UTC().Format("2006-01-02T150405"), ext)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
