package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	proxies, err := ParseTrustedProxies([]string{"192.0.2.0/24", "10.0.0.0/8"})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Use(chimw.RequestID, RealIP(proxies), RequestLogger(zerolog.New(&logs)))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := logs.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, `"ip":"203.0.113.9"`)
	assert.Contains(t, out, `"request_id":`)
}

func TestRecoverer(t *testing.T) {
	var logs bytes.Buffer
	handler := Recoverer(zerolog.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "boom")
	assert.Contains(t, logs.String(), `"stack"`)
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://shop.example", "*.teams.example"}))(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{"exact origin", http.MethodGet, "https://shop.example", false, "https://shop.example", http.StatusOK},
		{"wildcard subdomain", http.MethodGet, "https://eagles.teams.example", false, "https://eagles.teams.example", http.StatusOK},
		{"unknown origin", http.MethodGet, "https://evil.example", false, "", http.StatusOK},
		{"preflight", http.MethodOptions, "https://shop.example", true, "https://shop.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/cart", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRequireAdminKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"header key", "s3cret", AdminKeyHeader, "s3cret", http.StatusOK},
		{"bearer token", "s3cret", "Authorization", "Bearer s3cret", http.StatusOK},
		{"wrong key", "s3cret", AdminKeyHeader, "guess", http.StatusUnauthorized},
		{"missing key", "s3cret", "", "", http.StatusUnauthorized},
		{"admin disabled", "", AdminKeyHeader, "", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdminKey(tt.key, zerolog.Nop())(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func testLimiters(t *testing.T) map[string]Limiter {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Limiter{
		"memory": NewMemoryLimiter(1, 3),
		"redis":  NewRedisLimiter(client, 1, 3),
	}
}

func TestLimiter_BurstThenReject(t *testing.T) {
	for name, limiter := range testLimiters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				ok, err := limiter.Allow(ctx, "203.0.113.9")
				require.NoError(t, err)
				assert.True(t, ok, "request %d", i+1)
			}
			ok, err := limiter.Allow(ctx, "203.0.113.9")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = limiter.Allow(ctx, "198.51.100.4")
			require.NoError(t, err)
			assert.True(t, ok, "buckets are per key")
		})
	}
}

func TestRedisLimiter_Refills(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRedisLimiter(client, 60, 1)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "ip")
	assert.False(t, ok)

	now = now.Add(time.Second)
	ok, err = limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}

func TestRateLimit(t *testing.T) {
	t.Run("rejects when exhausted", func(t *testing.T) {
		handler := RateLimit(NewMemoryLimiter(1, 1), zerolog.Nop())(http.HandlerFunc(okHandler))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "60", second.Header().Get("Retry-After"))
	})

	t.Run("fails open", func(t *testing.T) {
		var logs bytes.Buffer
		handler := RateLimit(failingLimiter{}, zerolog.New(&logs))(http.HandlerFunc(okHandler))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, logs.String(), "rate limiter unavailable")
	})
}
