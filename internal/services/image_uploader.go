package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

// Materializer turns an inline image into a stored object.
type Materializer interface {
	Materialize(ctx context.Context, key, dataURL string) (string, error)
	URLFor(key string) string
}

// BackgroundUploader resolves line item images for checkout. Inline images
// are uploaded on a goroutine with their own deadline; Resolve returns the
// URL the object will have and never waits for the upload.
type BackgroundUploader struct {
	images  Materializer
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewBackgroundUploader(images Materializer, timeout time.Duration, log zerolog.Logger) *BackgroundUploader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackgroundUploader{
		images:   images,
		timeout:  timeout,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// LineItemImageKey is the storage key of a line item's uploaded artwork.
func LineItemImageKey(itemID string) string {
	return fmt.Sprintf("line-items/%s.jpg", itemID)
}

func (u *BackgroundUploader) Resolve(ctx context.Context, item models.CartLineItem) string {
	if item.HasRemoteImage() {
		return item.ImageReference
	}
	if !item.HasInlineImage() {
		return ""
	}

	key := LineItemImageKey(item.ID)
	u.enqueue(ctx, key, item.ImageReference)
	return u.images.URLFor(key)
}

func (u *BackgroundUploader) enqueue(ctx context.Context, key, dataURL string) {
	u.mu.Lock()
	if _, busy := u.inflight[key]; busy {
		u.mu.Unlock()
		return
	}
	u.inflight[key] = struct{}{}
	u.wg.Add(1)
	u.mu.Unlock()

	// detached from the request so a finished checkout does not cancel it
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)

	go func() {
		defer u.wg.Done()
		defer cancel()
		defer func() {
			u.mu.Lock()
			delete(u.inflight, key)
			u.mu.Unlock()
		}()

		start := time.Now()
		if _, err := u.images.Materialize(uploadCtx, key, dataURL); err != nil {
			u.log.Warn().Err(err).Str("key", key).Msg("background image upload failed")
			return
		}
		u.log.Debug().Str("key", key).Dur("took", time.Since(start)).Msg("background image upload finished")
	}()
}

// Wait blocks until every started upload has finished. Used on shutdown.
func (u *BackgroundUploader) Wait() {
	u.wg.Wait()
}
