package ops

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/stl"
)

// MeshOutput contains the result of the ExportMesh operation.
type MeshOutput struct {
	Path       string    `json:"path"`
	Stats      stl.Stats `json:"stats"`
	ExportedAt int64     `json:"exported_at"`
}

// StepOutput contains the result of the ConvertToStep operation.
type StepOutput struct {
	Path       string    `json:"path"`
	Stats      stl.Stats `json:"stats"`
	Bytes      int       `json:"bytes"`
	ExportedAt int64     `json:"exported_at"`
}

// Converter turns an STL file into a STEP file.
type Converter interface {
	Convert(ctx context.Context, name string, stl []byte) ([]byte, error)
}

// MeshOptions returns the STL options configured in cfg.
func MeshOptions(cfg *config.Config) stl.Options {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return stl.Options{Name: cfg.SolidName, CurveSamples: cfg.CurveSamples}
}

// ExportMesh writes the working document as an ASCII STL file.
func ExportMesh(ctx context.Context, store *document.Store, cfg *config.Config, input ExportInput) (*MeshOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath("model", ExtMesh, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, ExtMesh, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export mesh")
	}

	shapes := store.Canonical()
	var stats stl.Stats
	if err := writeFileAtomic(exportPath, func(w io.Writer) error {
		var err error
		stats, err = stl.Write(w, shapes, MeshOptions(cfg))
		return err
	}); err != nil {
		return nil, err
	}

	return &MeshOutput{
		Path:       exportPath,
		Stats:      stats,
		ExportedAt: now.Unix(),
	}, nil
}

// ConvertToStep meshes the working document, sends it to conv and writes the
// returned STEP file. A nil conv means conversion is not configured.
func ConvertToStep(ctx context.Context, store *document.Store, conv Converter, cfg *config.Config, input ExportInput) (*StepOutput, error) {
	if conv == nil {
		return nil, errors.NewInvalidRequest("STEP conversion is not configured (set convert_url)")
	}
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath("model", ExtStep, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, ExtStep, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	var mesh bytes.Buffer
	stats, err := stl.Write(&mesh, store.Canonical(), MeshOptions(cfg))
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	step, err := conv.Convert(ctx, "model.stl", mesh.Bytes())
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("convert to STEP")
		}
		return nil, errors.NewConversionFailed(err)
	}

	if err := writeFileAtomic(exportPath, func(w io.Writer) error {
		_, err := w.Write(step)
		return err
	}); err != nil {
		return nil, err
	}

	return &StepOutput{
		Path:       exportPath,
		Stats:      stats,
		Bytes:      len(step),
		ExportedAt: now.Unix(),
	}, nil
}
