package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/storage"
)

func TestFS_Download(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads", "u1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uploads", "u1", "doc.txt"), []byte("hello world"), 0o644))

	s, err := storage.NewFS(root, storage.Options{})
	require.NoError(t, err)
	defer s.Close()

	b, err := s.Download(context.Background(), "uploads/u1/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))

	b, err = s.Download(context.Background(), "/uploads/u1/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))

	_, err = s.Download(context.Background(), "uploads/u1/missing.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.Download(context.Background(), "../outside.txt")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFS_ReadLimitStopsOnePastLimit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, 100), 0o644))

	s, err := storage.NewFS(root, storage.Options{ReadLimit: 10})
	require.NoError(t, err)
	b, err := s.Download(context.Background(), "big.txt")
	require.NoError(t, err)
	assert.Len(t, b, 11)
}

func TestFS_RootMustBeDirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err := storage.NewFS(f, storage.Options{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := storage.New(context.Background(), common.StorageConfig{Backend: "ftp"}, storage.Options{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	s, err := storage.New(context.Background(), common.StorageConfig{Backend: "fs", Root: t.TempDir()}, storage.Options{})
	require.NoError(t, err)
	assert.IsType(t, &storage.FS{}, s)
}

func TestSplitURL(t *testing.T) {
	cases := []struct {
		in, bucket, key string
	}{
		{"gs://other/a/b.pdf", "other", "a/b.pdf"},
		{"uploads/x.pdf", "default", "uploads/x.pdf"},
		{"/uploads/x.pdf", "default", "uploads/x.pdf"},
		{"gs://nokey", "default", "gs://nokey"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			b, k := storage.SplitURL(tc.in, "gs://", "default")
			assert.Equal(t, tc.bucket, b)
			assert.Equal(t, tc.key, k)
		})
	}
}
