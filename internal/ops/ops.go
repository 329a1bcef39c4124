package ops

import (
	"fmt"
	"path/filepath"
	"time"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// MaxImportBytes bounds the size of an imported document file.
const MaxImportBytes = 16 << 20

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampLimit applies the list limit default and upper bound.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// defaultExportPath generates the default export path.
// Format: ~/.mcad/exports/<prefix>-<timestamp><ext>
func defaultExportPath(prefix, ext string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(prefix), now.Format("2006-01-02T150405"), ext)
	return filepath.Join(dir, filename), nil
}
