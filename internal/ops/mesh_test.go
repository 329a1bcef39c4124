package ops

import (
	"context"
	stderrors "errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/session"
	"github.com/minimalcad/mcad/internal/shape"
)

func TestExportMesh_WritesSolid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, plate("a"), peg("b"), shape.Shape{ID: "x", Name: "Line", Kind: "Line"})
	env.cfg.SolidName = "bracket"

	_, err := session.New(env.store).Begin(ctx, "a")
	require.NoError(t, err)

	out, err := ExportMesh(ctx, env.store, env.cfg, ExportInput{Path: env.path("model.stl")})
	require.NoError(t, err)
	require.Equal(t, 2, out.Stats.Shapes, "ghost of a must not be meshed")
	require.Equal(t, 1, out.Stats.Skipped)
	// box: 12 triangles; 16-segment cylinder: 2*14 cap + 2*16 side
	require.Equal(t, 12+28+32, out.Stats.Facets)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.HasPrefix(text, "solid bracket\n"))
	require.True(t, strings.HasSuffix(text, "endsolid bracket\n"))
	require.Equal(t, out.Stats.Facets, strings.Count(text, "  facet normal "))
}

func TestExportMesh_RequiresStlExtension(t *testing.T) {
	env := newTestEnv(t, plate("a"))
	_, err := ExportMesh(context.Background(), env.store, env.cfg, ExportInput{Path: env.path("model.json")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExportMesh_Cancelled(t *testing.T) {
	env := newTestEnv(t, plate("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExportMesh(ctx, env.store, env.cfg, ExportInput{Path: env.path("model.stl")})
	require.True(t, errors.Is(err, errors.ErrCancelled))
	_, statErr := os.Stat(env.path("model.stl"))
	require.True(t, os.IsNotExist(statErr))
}

type fakeConverter struct {
	got  []byte
	name string
	err  error
}

func (f *fakeConverter) Convert(ctx context.Context, name string, stl []byte) ([]byte, error) {
	f.name = name
	f.got = stl
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ISO-10303-21;\nEND-ISO-10303-21;\n"), nil
}

func TestConvertToStep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, plate("a"))
	conv := &fakeConverter{}

	out, err := ConvertToStep(ctx, env.store, conv, env.cfg, ExportInput{Path: env.path("model.step")})
	require.NoError(t, err)
	require.Equal(t, "model.stl", conv.name)
	require.True(t, strings.HasPrefix(string(conv.got), "solid exported_model\n"))
	require.Equal(t, 12, out.Stats.Facets)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	require.Equal(t, out.Bytes, len(data))
	require.True(t, strings.HasPrefix(string(data), "ISO-10303-21;"))
}

func TestConvertToStep_Failures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, plate("a"))

	_, err := ConvertToStep(ctx, env.store, nil, env.cfg, ExportInput{Path: env.path("model.step")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = ConvertToStep(ctx, env.store, &fakeConverter{}, env.cfg, ExportInput{Path: env.path("model.stl")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = ConvertToStep(ctx, env.store, &fakeConverter{err: stderrors.New("exit code 1")}, env.cfg, ExportInput{Path: env.path("model.step")})
	require.True(t, errors.Is(err, errors.ErrConversionFailed))
	_, statErr := os.Stat(env.path("model.step"))
	require.True(t, os.IsNotExist(statErr))
}
