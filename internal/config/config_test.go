package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		body  string // empty means no file
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "missing file gives defaults",
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "file overrides some scalars",
			body: `{"curve_samples": 64, "solid_name": "bracket", "convert_url": "http://localhost:5000"}`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, 64, cfg.CurveSamples)
				require.Equal(t, "bracket", cfg.SolidName)
				require.Equal(t, "http://localhost:5000", cfg.ConvertURL)
				require.Equal(t, DefaultDocumentKey, cfg.DocumentKey)
				require.Equal(t, DefaultConvertTimeoutSeconds, cfg.ConvertTimeoutSeconds)
			},
		},
		{
			name: "disabled tools keep order",
			body: `{"disabled_tools": ["shape_delete", "project_save"]}`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, []string{"shape_delete", "project_save"}, cfg.DisabledTools)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if tc.body != "" {
				writeConfig(t, dir, tc.body)
			}
			cfg, err := Load(dir)
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{not json}`)

	_, err := Load(dir)
	require.ErrorContains(t, err, path)
}

func TestLoadWithRepo(t *testing.T) {
	t.Run("repo layer wins", func(t *testing.T) {
		globalDir, repoRoot := t.TempDir(), t.TempDir()
		writeConfig(t, globalDir, `{"curve_samples": 32, "owner": "global@example.com", "disabled_tools": ["shape_delete"]}`)
		writeConfig(t, filepath.Join(repoRoot, ".mcad"), `{"curve_samples": 48, "disabled_tools": ["project_save"]}`)

		cfg, err := LoadWithRepo(globalDir, repoRoot)
		require.NoError(t, err)
		require.Equal(t, 48, cfg.CurveSamples)
		require.Equal(t, "global@example.com", cfg.Owner)
		require.Equal(t, []string{"shape_delete", "project_save"}, cfg.DisabledTools)
	})

	t.Run("no files", func(t *testing.T) {
		cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
		require.NoError(t, err)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("found from a subdirectory", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, filepath.Join(root, ".mcad"), `{"document_key": "bench"}`)
		sub := filepath.Join(root, "parts", "brackets")
		require.NoError(t, os.MkdirAll(sub, 0755))

		cfg, err := LoadWithRepo(t.TempDir(), sub)
		require.NoError(t, err)
		require.Equal(t, "bench", cfg.DocumentKey)
	})

	t.Run("broken repo file", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, filepath.Join(root, ".mcad"), `[`)

		_, err := LoadWithRepo(t.TempDir(), root)
		require.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	base := &Config{
		CurveSamples:     24,
		DBMaxOpenConns:   5,
		SolidName:        "base",
		AllowUnsafePaths: true,
		AllowedPaths:     []string{"/a", "/b"},
	}
	overlay := &Config{
		CurveSamples: 12,
		SolidName:    "  ",
		Owner:        " me ",
		AllowedPaths: []string{" /b ", "/c", ""},
	}

	got := Merge(base, overlay)

	require.Equal(t, 12, got.CurveSamples, "set overlay scalar wins")
	require.Equal(t, 5, got.DBMaxOpenConns, "zero overlay keeps base")
	require.Equal(t, "base", got.SolidName, "blank overlay keeps base")
	require.Equal(t, "me", got.Owner)
	require.True(t, got.AllowUnsafePaths)
	require.Equal(t, []string{"/a", "/b", "/c"}, got.AllowedPaths)
	require.Nil(t, got.DisabledTypes)
}

func TestFindRepoConfig(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, filepath.Join(root, ".mcad"), `{}`)
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0755))

	require.Equal(t, want, FindRepoConfig(deep))
	require.Equal(t, want, FindRepoConfig(root))
	require.Empty(t, FindRepoConfig(t.TempDir()))
}
