package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// ImportInput contains parameters for the ImportDocument operation.
type ImportInput struct {
	Path string // required, must end in .json
}

// ImportOutput contains the result of the ImportDocument operation.
type ImportOutput struct {
	Path     string `json:"path"`
	Imported int    `json:"imported"`
}

// ImportDocument replaces the working document with the shapes in a
// model-data JSON file. The whole file is validated before anything is
// written; on any error the document is unchanged.
func ImportDocument(ctx context.Context, store *document.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, ExtDocument, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, false)
	if err != nil {
		if _, ok := err.(*errors.CadError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	shapes, err := DecodeDocument(file)
	if err != nil {
		return nil, err
	}

	if err := store.Replace(ctx, shapes); err != nil {
		return nil, err
	}

	return &ImportOutput{
		Path:     input.Path,
		Imported: len(store.Canonical()),
	}, nil
}

// DecodeDocument reads a JSON array of shape records.
func DecodeDocument(r io.Reader) ([]shape.Shape, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("document exceeds %d bytes", MaxImportBytes))
	}

	var shapes []shape.Shape
	if err := json.Unmarshal(data, &shapes); err != nil {
		return nil, errors.NewMalformedInput(fmt.Sprintf("invalid document JSON: %v", err))
	}
	if shapes == nil {
		return nil, errors.NewMalformedInput("document must be a JSON array of shapes")
	}
	return shapes, nil
}

// ExportInput contains parameters for the ExportDocument and ExportMesh
// operations.
type ExportInput struct {
	Path string // optional, default: ~/.mcad/exports/<name>-<timestamp>.<ext>
}

// ExportOutput contains the result of an export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// DocumentSnapshot returns the shapes a saved document contains: the
// canonical records with selection cleared.
func DocumentSnapshot(store *document.Store) []shape.Shape {
	shapes := store.Canonical()
	for i := range shapes {
		shapes[i].Selected = false
	}
	return shapes
}

// EncodeDocument writes shapes as an indented JSON array.
func EncodeDocument(w io.Writer, shapes []shape.Shape) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(shapes)
}

// ExportDocument writes the working document as model-data JSON.
func ExportDocument(ctx context.Context, store *document.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath("model-data", ExtDocument, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, ExtDocument, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export document")
	}

	shapes := DocumentSnapshot(store)
	if err := writeFileAtomic(exportPath, func(w io.Writer) error {
		return EncodeDocument(w, shapes)
	}); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(shapes),
		ExportedAt: now.Unix(),
	}, nil
}
