package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads/"

type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) Dir() string {
	return s.baseDir
}

// Put writes the blob and returns its public reference, e.g.
// "/uploads/0190f3c2-poster.jpg".
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid blob name")
	}

	out, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := out.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(s.baseDir, name)); err != nil {
		return "", err
	}

	return PublicPrefix + strings.TrimPrefix(name, "/"), nil
}
