package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps objects as plain files under a base directory.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath, logger: logger}, nil
}

func (l *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(clean)), nil
}

func (l *LocalStorage) Put(_ context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	fullPath, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return ObjectInfo{}, err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			l.logger.Error("failed to close file", "error", err, "path", fullPath)
		}
	}()

	n, err := io.Copy(file, r)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := file.Stat()
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the file behind key. The content type is guessed from the extension.
func (l *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	fullPath, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, err
	}
	ct := mime.TypeByExtension(filepath.Ext(fullPath))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return file, ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  ct,
		LastModified: st.ModTime(),
	}, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
