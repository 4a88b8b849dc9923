package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	storage := NewLocalStorage(dir, "http://localhost:8080/uploads/", zerolog.Nop())
	ctx := context.Background()

	content := "medallion artwork"
	url, err := storage.Upload(ctx, "/line-items/abc.jpg", strings.NewReader(content), "image/jpeg", int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/line-items/abc.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "line-items", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	exists, err := storage.Exists(ctx, "line-items/abc.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, storage.Delete(ctx, "line-items/abc.jpg"))
	exists, err = storage.Exists(ctx, "line-items/abc.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(filepath.Join(dir, "line-items"))
	assert.True(t, os.IsNotExist(err), "empty directory should be removed")
}

func TestLocalStorage_SizeMismatch(t *testing.T) {
	storage := NewLocalStorage(t.TempDir(), "http://localhost", zerolog.Nop())

	_, err := storage.Upload(context.Background(), "a.txt", strings.NewReader("abc"), "text/plain", 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	storage := NewLocalStorage(t.TempDir(), "http://localhost", zerolog.Nop())

	_, err := storage.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x"), "text/plain", 1)
	assert.Error(t, err)
}

func TestLocalStorage_DeleteMissingIsNoop(t *testing.T) {
	storage := NewLocalStorage(t.TempDir(), "http://localhost", zerolog.Nop())
	assert.NoError(t, storage.Delete(context.Background(), "nothing/here.jpg"))
}

type failingStorage struct {
	uploads int
}

func (f *failingStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error) {
	f.uploads++
	_, _ = io.ReadAll(r)
	return "", errors.New("r2 unavailable")
}
func (f *failingStorage) Delete(ctx context.Context, key string) error { return errors.New("r2 unavailable") }
func (f *failingStorage) GetURL(key string) string                     { return "https://cdn.example.com/" + key }
func (f *failingStorage) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("r2 unavailable")
}

func TestFallbackStorage_UsesFallbackOnPrimaryFailure(t *testing.T) {
	dir := t.TempDir()
	primary := &failingStorage{}
	local := NewLocalStorage(dir, "http://localhost/uploads", zerolog.Nop())
	storage := NewFallbackStorage(primary, local, zerolog.Nop())
	ctx := context.Background()

	content := "jpeg bytes"
	url, err := storage.Upload(ctx, "line-items/x.jpg", strings.NewReader(content), "image/jpeg", int64(len(content)))

	require.NoError(t, err)
	assert.Equal(t, 1, primary.uploads)
	assert.Equal(t, "http://localhost/uploads/line-items/x.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "line-items", "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "fallback must receive the full payload after rewind")

	assert.Equal(t, "https://cdn.example.com/line-items/x.jpg", storage.GetURL("line-items/x.jpg"))

	exists, err := storage.Exists(ctx, "line-items/x.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, storage.Delete(ctx, "line-items/x.jpg"))
}

func TestFallbackStorage_NonSeekableReader(t *testing.T) {
	storage := NewFallbackStorage(&failingStorage{}, NewLocalStorage(t.TempDir(), "http://localhost", zerolog.Nop()), zerolog.Nop())

	_, err := storage.Upload(context.Background(), "k", io.LimitReader(strings.NewReader("abc"), 3), "text/plain", 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reset reader")
}
