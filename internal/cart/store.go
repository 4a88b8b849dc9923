// Package cart persists a shopper's line items between requests.
//
// The Store is the only code that knows the storage key and the serialized
// shape of a cart. Where the bytes live is decided by a Backend: the session
// cookie by default, or Redis when carts should stay server side.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

// StorageKey is the fixed key the serialized cart is stored under.
const StorageKey = "cart"

// ErrPersist is returned when a cart could not be written. It is recoverable:
// the previous cart is still in place and the request can carry on.
var ErrPersist = errors.New("cart could not be persisted")

// Backend reads and writes the serialized cart for one shopper. Read returns
// an empty string when nothing has been stored yet.
type Backend interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, data string) error
}

// Store is the cart seam used by handlers. Last write wins when two requests
// for the same shopper race.
type Store struct {
	backend Backend
	log     zerolog.Logger
}

func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{backend: backend, log: log}
}

// Load returns the stored items. A missing, unreadable or corrupted cart is
// an empty cart; the problem is logged and never returned.
func (s *Store) Load(ctx context.Context) []models.CartLineItem {
	data, err := s.backend.Read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("cart read failed, starting empty")
		return []models.CartLineItem{}
	}
	if data == "" {
		return []models.CartLineItem{}
	}

	var items []models.CartLineItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		s.log.Warn().Err(err).Msg("stored cart is malformed, starting empty")
		return []models.CartLineItem{}
	}
	if items == nil {
		items = []models.CartLineItem{}
	}
	return items
}

// Save overwrites the stored cart with items, keeping their order.
func (s *Store) Save(ctx context.Context, items []models.CartLineItem) error {
	if items == nil {
		items = []models.CartLineItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.backend.Write(ctx, string(data)); err != nil {
		s.log.Warn().Err(err).Int("items", len(items)).Msg("cart write failed")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Add validates item and appends it. The returned slice is the cart as it now
// stands, or as it stood before when the write failed.
func (s *Store) Add(ctx context.Context, item models.CartLineItem) ([]models.CartLineItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	items := s.Load(ctx)
	updated := append(items, item)
	if err := s.Save(ctx, updated); err != nil {
		return items, err
	}
	return updated, nil
}

// Remove deletes the item with the given id. Removing an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) ([]models.CartLineItem, error) {
	items := s.Load(ctx)

	kept := make([]models.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return items, nil
	}

	if err := s.Save(ctx, kept); err != nil {
		return items, err
	}
	return kept, nil
}

// SetQuantity rewrites the quantity of one item, clamped to at least 1.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) ([]models.CartLineItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	items := s.Load(ctx)
	updated := make([]models.CartLineItem, len(items))
	copy(updated, items)

	found := false
	for i := range updated {
		if updated[i].ID == id {
			updated[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return items, nil
	}

	if err := s.Save(ctx, updated); err != nil {
		return items, err
	}
	return updated, nil
}

// Clear empties the cart, typically after a checkout session was created.
func (s *Store) Clear(ctx context.Context) error {
	return s.Save(ctx, nil)
}
