package cart

import (
	"context"
	"sync"
)

// MemoryBackend holds the cart in process memory. It backs tests and
// single-shot tools.
type MemoryBackend struct {
	mu   sync.Mutex
	data string
	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

func NewMemoryBackend(initial string) *MemoryBackend {
	return &MemoryBackend{data: initial}
}

func (b *MemoryBackend) Read(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data, nil
}

func (b *MemoryBackend) Write(ctx context.Context, data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	b.data = data
	return nil
}

// Raw returns the stored serialized cart.
func (b *MemoryBackend) Raw() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}
