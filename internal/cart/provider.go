package cart

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cartIDKey = "cart_id"

// Provider hands out the Store for the shopper behind a request.
type Provider interface {
	For(w http.ResponseWriter, r *http.Request) *Store
}

// SessionProvider stores carts in the session cookie.
type SessionProvider struct {
	sessions sessions.Store
	name     string
	log      zerolog.Logger
}

func NewSessionProvider(store sessions.Store, name string, log zerolog.Logger) *SessionProvider {
	return &SessionProvider{sessions: store, name: name, log: log}
}

func (p *SessionProvider) For(w http.ResponseWriter, r *http.Request) *Store {
	return NewStore(NewSessionBackend(p.sessions, p.name, w, r), p.log)
}

// RedisProvider stores carts in Redis. The session cookie only carries the
// cart id.
type RedisProvider struct {
	client   *redis.Client
	sessions sessions.Store
	name     string
	ttl      time.Duration
	log      zerolog.Logger
}

func NewRedisProvider(client *redis.Client, store sessions.Store, name string, ttl time.Duration, log zerolog.Logger) *RedisProvider {
	return &RedisProvider{client: client, sessions: store, name: name, ttl: ttl, log: log}
}

func (p *RedisProvider) For(w http.ResponseWriter, r *http.Request) *Store {
	return NewStore(NewRedisBackend(p.client, p.cartID(w, r), p.ttl), p.log)
}

// cartID returns the id stored in the session, minting and saving a new one
// for first-time shoppers. If the cookie cannot be written the shopper gets a
// throwaway cart for this request.
func (p *RedisProvider) cartID(w http.ResponseWriter, r *http.Request) string {
	session, err := p.sessions.Get(r, p.name)
	if err != nil && session == nil {
		p.log.Warn().Err(err).Msg("session unavailable, using transient cart")
		return uuid.NewString()
	}

	if id, ok := session.Values[cartIDKey].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	session.Values[cartIDKey] = id
	if err := session.Save(r, w); err != nil {
		p.log.Warn().Err(err).Msg("failed to save cart id to session")
	}
	return id
}
