package assets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"keepsake/internal/services"
)

// FilesystemStore writes uploads under a local directory served by an
// external web server at a fixed base URL.
type FilesystemStore struct {
	dir     string
	baseURL string
}

// NewFilesystemStore creates the local backend rooted at dir.
func NewFilesystemStore(dir, baseURL string) (*FilesystemStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("assets dir required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("assets base url required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "new", "ensure assets dir", err)
	}
	return &FilesystemStore{dir: dir, baseURL: baseURL}, nil
}

// Upload copies the file into place and returns its public URL. The write
// goes through a temp file so a failed upload never leaves a partial asset at
// the published path.
func (s *FilesystemStore) Upload(ctx context.Context, kind Kind, filename string, body io.Reader) (string, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return "", services.Wrap(services.ErrValidation, component, "upload",
			"unknown asset kind "+string(kind), nil)
	}
	key := objectKey(kind, filename)
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, component, "upload", "ensure kind dir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, component, "upload", "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, component, "upload", "write asset", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, component, "upload", "close asset", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, component, "upload", "publish asset", err)
	}
	return s.baseURL + "/" + key, nil
}
