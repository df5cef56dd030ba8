package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/property-intake/internal/common"
)

// FS serves blobs from a directory on local disk.
type FS struct {
	root string
	opts Options
}

func NewFS(root string, opts Options) (*FS, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: storage root %s is not a directory", common.ErrInvalidInput, abs)
	}
	return &FS{root: abs, opts: opts}, nil
}

// Download reads root/path. Paths escaping the root are rejected.
func (s *FS) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorage, path, err)
	}
	defer func() { _ = f.Close() }()
	return readLimited(f, s.opts.ReadLimit)
}

func (s *FS) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(path, "/")))
	full := filepath.Join(s.root, clean)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes storage root", common.ErrInvalidInput, path)
	}
	return full, nil
}

func (s *FS) Close() error { return nil }
