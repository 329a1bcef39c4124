package project

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "Bracket Mount", want: "bracket mount"},
		{name: "trim whitespace", input: "  gear  ", want: "gear"},
		{name: "collapse internal whitespace", input: "desk    lamp", want: "desk lamp"},
		{name: "tabs and newlines", input: "base\t\n  plate", want: "base plate"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLint(t *testing.T) {
	require.NoError(t, Lint("Bracket", "A *small* bracket."))
	require.True(t, errors.Is(Lint("   ", ""), errors.ErrInvalidRequest))
	require.True(t, errors.Is(Lint(strings.Repeat("x", MaxNameChars+1), ""), errors.ErrInvalidRequest))
	require.True(t, errors.Is(Lint("ok", strings.Repeat("é", MaxDescriptionChars+1)), errors.ErrInvalidRequest))
	require.NoError(t, Lint("ok", strings.Repeat("é", MaxDescriptionChars)))
}

func TestAuthorize(t *testing.T) {
	public := &Project{ID: "p1"}
	require.True(t, public.IsPublic())
	require.NoError(t, public.Authorize(""))
	require.NoError(t, public.Authorize("anything"))

	private := &Project{ID: "p2", AccessKey: "secret"}
	require.False(t, private.IsPublic())
	require.NoError(t, private.Authorize("secret"))
	require.True(t, errors.Is(private.Authorize(""), errors.ErrAccessDenied))
	require.True(t, errors.Is(private.Authorize("wrong"), errors.ErrAccessDenied))
}

func TestToSummary_HidesAccessKey(t *testing.T) {
	p := &Project{ID: "p", NameRaw: "Gear", NameNorm: "gear", AccessKey: "k", ShapeCount: 3}
	s := p.ToSummary()
	require.Equal(t, "Gear", s.Name)
	require.False(t, s.Public)
	require.Equal(t, 3, s.ShapeCount)
}
