package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStorage keeps objects on disk and serves them under baseURL. It is
// used in development and when R2 is unreachable.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

func NewLocalStorage(basePath, baseURL string, log zerolog.Logger) *LocalStorage {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Warn().Err(err).Str("path", basePath).Msg("failed to create storage directory")
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		log:      log,
	}
}

func (l *LocalStorage) path(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	full := filepath.Join(l.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Clean(l.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

func (l *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	fullPath, err := l.path(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}

	l.log.Debug().Str("key", key).Str("path", fullPath).Msg("saved object locally")
	return l.GetURL(key), nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}

	l.cleanupEmptyDirs(filepath.Dir(fullPath))
	return nil
}

func (l *LocalStorage) GetURL(key string) string {
	return fmt.Sprintf("%s/%s", l.baseURL, strings.TrimPrefix(key, "/"))
}

func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := l.path(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if file exists: %w", err)
	}
	return true, nil
}

// cleanupEmptyDirs removes empty directories up to, not including, the base path
func (l *LocalStorage) cleanupEmptyDirs(dir string) {
	if filepath.Clean(dir) == filepath.Clean(l.basePath) || dir == "." || dir == "/" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}

	if err := os.Remove(dir); err == nil {
		l.cleanupEmptyDirs(filepath.Dir(dir))
	}
}

// FallbackStorage writes to primary and retries on fallback when primary
// fails. URLs always come from primary, so a fallback copy is only reachable
// once it has been synced; the local copy keeps the artwork from being lost.
type FallbackStorage struct {
	primary  StorageService
	fallback StorageService
	log      zerolog.Logger
}

func NewFallbackStorage(primary, fallback StorageService, log zerolog.Logger) *FallbackStorage {
	return &FallbackStorage{primary: primary, fallback: fallback, log: log}
}

func (s *FallbackStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	url, err := s.primary.Upload(ctx, key, reader, contentType, size)
	if err == nil {
		return url, nil
	}

	seeker, ok := reader.(io.Seeker)
	if !ok {
		return "", fmt.Errorf("primary storage failed and cannot reset reader for fallback: %w", err)
	}
	if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
		return "", fmt.Errorf("primary storage failed and reader reset failed: %w", err)
	}

	s.log.Warn().Err(err).Str("key", key).Msg("primary storage failed, using fallback")
	return s.fallback.Upload(ctx, key, reader, contentType, size)
}

// Delete removes from both; it fails only if both fail.
func (s *FallbackStorage) Delete(ctx context.Context, key string) error {
	primaryErr := s.primary.Delete(ctx, key)
	fallbackErr := s.fallback.Delete(ctx, key)

	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("both storages failed - primary: %v, fallback: %w", primaryErr, fallbackErr)
	}
	return nil
}

func (s *FallbackStorage) GetURL(key string) string {
	return s.primary.GetURL(key)
}

func (s *FallbackStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.primary.Exists(ctx, key)
	if err == nil && exists {
		return true, nil
	}
	return s.fallback.Exists(ctx, key)
}
