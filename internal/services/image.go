package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	maxImageDimension = 1200
	jpegQuality       = 85

	// MaxImageBytes bounds a decoded upload.
	MaxImageBytes = 10 << 20
)

var (
	ErrInvalidDataURL = errors.New("invalid image data URL")
	ErrImageTooLarge  = errors.New("image exceeds maximum size")
)

// ImageService normalises customer and admin images and stores them.
type ImageService struct {
	storage StorageService
}

func NewImageService(storage StorageService) *ImageService {
	return &ImageService{storage: storage}
}

// URLFor returns the public URL the object at key has or will have.
func (s *ImageService) URLFor(key string) string {
	return s.storage.GetURL(key)
}

// Materialize decodes an inline data:image/...;base64 payload, normalises it
// and uploads it under key. It returns the public URL.
func (s *ImageService) Materialize(ctx context.Context, key, dataURL string) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.store(ctx, key, bytes.NewReader(raw))
}

// Upload normalises an uploaded file and stores it under a fresh key in
// folder.
func (s *ImageService) Upload(ctx context.Context, folder string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	key := fmt.Sprintf("%s/%s.jpg", strings.Trim(folder, "/"), uuid.NewString())
	return s.store(ctx, key, bytes.NewReader(data))
}

func (s *ImageService) store(ctx context.Context, key string, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	data, err := normalizeImage(img)
	if err != nil {
		return "", err
	}

	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "image/jpeg", int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

// normalizeImage fits img within the maximum dimension (never upscaling) and
// encodes it as JPEG.
func normalizeImage(img image.Image) ([]byte, error) {
	resized := imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidDataURL
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return raw, nil
}
