//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/minimalcad/mcad/internal/errors"
)

// openNoFollow opens path for reading, or for exclusive creation when write
// is set, refusing a symlink as the final component. Parent directories are
// covered by ValidatePath's "directly in an allowed directory" rule.
func openNoFollow(path string, write bool) (*os.File, error) {
	flag := syscall.O_RDONLY
	if write {
		flag = syscall.O_WRONLY | syscall.O_CREAT | syscall.O_EXCL
	}

	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0600)
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), path), nil
	case stderrors.Is(err, syscall.ELOOP):
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	case !write && stderrors.Is(err, syscall.ENOENT):
		return nil, errors.NewFileNotFound(path)
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: err}
}
