package cart

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionBackend keeps the serialized cart inside the shopper's cookie
// session. It is bound to a single request/response pair.
type SessionBackend struct {
	store sessions.Store
	name  string
	w     http.ResponseWriter
	r     *http.Request
}

func NewSessionBackend(store sessions.Store, name string, w http.ResponseWriter, r *http.Request) *SessionBackend {
	return &SessionBackend{store: store, name: name, w: w, r: r}
}

func (b *SessionBackend) Read(ctx context.Context) (string, error) {
	session, err := b.store.Get(b.r, b.name)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}

	data, ok := session.Values[StorageKey]
	if !ok {
		return "", nil
	}
	cartJSON, ok := data.(string)
	if !ok {
		return "", fmt.Errorf("session cart has unexpected type %T", data)
	}
	return cartJSON, nil
}

// Write stores data and emits the session cookie. Cookie stores reject values
// that would exceed the browser's cookie size limit.
func (b *SessionBackend) Write(ctx context.Context, data string) error {
	session, err := b.store.Get(b.r, b.name)
	if err != nil && session == nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	session.Values[StorageKey] = data
	if err := session.Save(b.r, b.w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
