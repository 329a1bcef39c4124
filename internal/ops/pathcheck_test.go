package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/errors"
)

// pathFixture is an allowed directory with an existing model file, a
// subdirectory and a second directory outside the allowlist.
type pathFixture struct {
	allowed, outside string
	existing         string
	cfg              *config.Config
}

func newPathFixture(t *testing.T) *pathFixture {
	t.Helper()
	f := &pathFixture{allowed: t.TempDir(), outside: t.TempDir()}
	f.cfg = config.DefaultConfig()
	f.cfg.AllowedPaths = []string{f.allowed}

	f.existing = filepath.Join(f.allowed, "model-data.json")
	require.NoError(t, os.WriteFile(f.existing, []byte("[]"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(f.allowed, "sub"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(f.allowed, "sub", "nested.json"), []byte("[]"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(f.outside, "other.json"), []byte("[]"), 0600))
	return f
}

// symlink creates name in the allowed directory pointing at target, or skips.
func (f *pathFixture) symlink(t *testing.T, target, name string) string {
	t.Helper()
	link := filepath.Join(f.allowed, name)
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	return link
}

func TestValidatePath(t *testing.T) {
	f := newPathFixture(t)

	tests := []struct {
		name string
		path string
		ext  string
		mode PathCheckMode
		want errors.ErrorCode // empty means success
	}{
		{"existing file read", f.existing, ExtDocument, PathCheckRead, ""},
		{"new file write", filepath.Join(f.allowed, "out.json"), ExtDocument, PathCheckWrite, ""},
		{"empty path", "", ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"parent traversal", "../backup.json", ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"mid-path traversal", "/tmp/../etc/backup.json", ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"hidden traversal", "/tmp/safe/../../../etc/shadow.json", ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"no extension", filepath.Join(f.allowed, "backup"), ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"wrong extension", filepath.Join(f.allowed, "backup.stl"), ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"outside allowlist", filepath.Join(f.outside, "other.json"), ExtDocument, PathCheckRead, errors.ErrInvalidRequest},
		{"nested read", filepath.Join(f.allowed, "sub", "nested.json"), ExtDocument, PathCheckRead, errors.ErrInvalidRequest},
		{"nested write", filepath.Join(f.allowed, "sub", "out.json"), ExtDocument, PathCheckWrite, errors.ErrInvalidRequest},
		{"missing file read", filepath.Join(f.allowed, "missing.json"), ExtDocument, PathCheckRead, errors.ErrFileNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, tc.ext, tc.mode, f.cfg)
			if tc.want == "" {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tc.want), "want %s, got %v", tc.want, err)
		})
	}
}

func TestValidatePath_DefaultConfigOnlyExports(t *testing.T) {
	err := ValidatePath("/tmp/backup.json", ExtDocument, PathCheckWrite, config.DefaultConfig())
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	dir, err := DefaultExportsDir()
	require.NoError(t, err)
	require.NoError(t, ValidatePath(filepath.Join(dir, "model.stl"), ExtMesh, PathCheckWrite, nil))
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	f := newPathFixture(t)
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	require.NoError(t, ValidatePath(filepath.Join(f.outside, "other.json"), ExtDocument, PathCheckRead, cfg))
	require.NoError(t, ValidatePath(filepath.Join(f.allowed, "sub", "out.json"), ExtDocument, PathCheckWrite, cfg))

	// The extension and existence checks still apply.
	err := ValidatePath(filepath.Join(f.outside, "other.txt"), ExtDocument, PathCheckWrite, cfg)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	err = ValidatePath(filepath.Join(f.outside, "missing.json"), ExtDocument, PathCheckRead, cfg)
	require.True(t, errors.Is(err, errors.ErrFileNotFound))
}

func TestValidatePath_Symlinks(t *testing.T) {
	f := newPathFixture(t)
	outsideFile := filepath.Join(f.outside, "other.json")

	t.Run("read through link", func(t *testing.T) {
		link := f.symlink(t, outsideFile, "link.json")
		err := ValidatePath(link, ExtDocument, PathCheckRead, f.cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})

	t.Run("write over link", func(t *testing.T) {
		link := f.symlink(t, outsideFile, "out-link.json")
		err := ValidatePath(link, ExtDocument, PathCheckWrite, f.cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})

	t.Run("unsafe paths still reject links", func(t *testing.T) {
		link := f.symlink(t, f.existing, "self-link.json")
		cfg := config.DefaultConfig()
		cfg.AllowUnsafePaths = true
		err := ValidatePath(link, ExtDocument, PathCheckRead, cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})

	t.Run("symlinked allowed dir resolves", func(t *testing.T) {
		linkDir := filepath.Join(t.TempDir(), "exports-link")
		if err := os.Symlink(f.outside, linkDir); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}
		cfg := config.DefaultConfig()
		cfg.AllowedPaths = []string{linkDir}
		require.NoError(t, ValidatePath(outsideFile, ExtDocument, PathCheckRead, cfg))
	})
}

func TestValidatePath_ExtensionPerOperation(t *testing.T) {
	f := newPathFixture(t)

	tests := []struct {
		file string
		ext  string
		ok   bool
	}{
		{"model.stl", ExtMesh, true},
		{"MODEL.STL", ExtMesh, true},
		{"model.step", ExtStep, true},
		{"model.stl", ExtStep, false},
		{"model-data.json", ExtDocument, true},
		{"model-data.json", ExtMesh, false},
	}

	for _, tc := range tests {
		t.Run(tc.file+tc.ext, func(t *testing.T) {
			err := ValidatePath(filepath.Join(f.allowed, tc.file), tc.ext, PathCheckWrite, f.cfg)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
			}
		})
	}
}

func TestOpenNoFollow(t *testing.T) {
	f := newPathFixture(t)

	file, err := openNoFollow(f.existing, false)
	require.NoError(t, err)
	file.Close()

	_, err = openNoFollow(filepath.Join(f.allowed, "missing.json"), false)
	require.True(t, errors.Is(err, errors.ErrFileNotFound))

	// Write mode never truncates an existing file.
	_, err = openNoFollow(f.existing, true)
	require.Error(t, err)
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.json", false},
		{"../file.json", true},
		{"/home/../etc/passwd", true},
		{"./file.json", false},
		{"/home/user/.hidden/file.json", false},
		{"file..name.json", false},
		{"/tmp/a/b/../c.json", true},
		{"a/b/..", true},
	}

	for _, tc := range tests {
		if got := containsTraversal(tc.path); got != tc.contains {
			t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
		}
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"bracket", "bracket"},
		{"mounting bracket", "mounting bracket"},
		{"path/to/file", "path-to-file"},
		{"path\\to\\file", "path-to-file"},
		{"foo..bar", "foo-bar"},
		{"../../../etc/passwd", "etc-passwd"},
		{"/tmp/evil", "tmp-evil"},
		{"../foo/bar\\..\\baz", "foo-bar-baz"},
		{"foo\x00bar", "foobar"},
		{"foo\x01\x02bar", "foobar"},
		{"../../..", "unnamed"},
		{"///", "unnamed"},
		{"project-中文", "project-中文"},
		{"a---b", "a-b"},
		{"---foo---", "foo"},
	}

	for _, tc := range tests {
		if got := SanitizeForFilename(tc.input); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
