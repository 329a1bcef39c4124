//go:build windows

package ops

import (
	"os"

	"github.com/minimalcad/mcad/internal/errors"
)

// openNoFollow opens path for reading, or for exclusive creation when write
// is set. Windows has no O_NOFOLLOW; ValidatePath has already rejected
// symlinks.
func openNoFollow(path string, write bool) (*os.File, error) {
	if write {
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
