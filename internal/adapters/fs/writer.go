package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputWriter = (*Writer)(nil)

// Writer persists outputs atomically under the project root.
type Writer struct {
	hasher *Hasher
}

// NewWriter creates a new Writer.
func NewWriter(hasher *Hasher) *Writer {
	return &Writer{hasher: hasher}
}

// Write stores out.Data at out.Path. Identical existing content is left untouched and
// reported as not written. A reader never observes a partially written file.
func (w *Writer) Write(root string, out ports.Output) (bool, error) {
	dest, err := resolveWithinRoot(root, out.Path)
	if err != nil {
		return false, err
	}

	same, err := w.identical(dest, out.Data)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to create temporary file"), "path", dest)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(out.Data); err != nil {
		_ = tmp.Close()
		return false, zerr.With(zerr.Wrap(err, "failed to write output"), "path", dest)
	}
	if err := tmp.Close(); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to close output"), "path", dest)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to set output permissions"), "path", dest)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to move output into place"), "path", dest)
	}

	return true, nil
}

func (w *Writer) identical(dest string, data []byte) (bool, error) {
	info, err := os.Stat(dest)
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat output"), "path", dest)
	}
	if info.IsDir() || info.Size() != int64(len(data)) {
		return false, nil
	}

	existing, err := w.hasher.ComputeFileHash(dest)
	if err != nil {
		return false, err
	}
	return existing == w.hasher.ComputeHash(data), nil
}

// resolveWithinRoot returns the absolute form of path and rejects paths escaping root.
func resolveWithinRoot(root, path string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve project root")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(rootAbs, path)
	}
	pathAbs := filepath.Clean(path)

	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve relative path"), "file", path)
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(domain.ErrOutputPathOutsideRoot, "file", path)
	}

	return pathAbs, nil
}
