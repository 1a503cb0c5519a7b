package fs

import (
	"errors"
	iofs "io/fs"
	"os"

	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ChangeFilter = (*NewerFilter)(nil)

// NewerFilter passes a source when its destination is missing or older.
type NewerFilter struct{}

// NewNewerFilter creates a new NewerFilter.
func NewNewerFilter() *NewerFilter {
	return &NewerFilter{}
}

// Changed reports whether dest is missing or has an older modification time than src.
func (f *NewerFilter) Changed(src, dest string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat source"), "path", src)
	}

	destInfo, err := os.Stat(dest)
	if errors.Is(err, iofs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat destination"), "path", dest)
	}

	return srcInfo.ModTime().After(destInfo.ModTime()), nil
}
