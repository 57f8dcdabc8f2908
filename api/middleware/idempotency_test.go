package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls))

	body := `{"assignment_id":"x","amount_cents":400}`
	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := makeRequest()
	second := makeRequest()

	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay must return the stored body: %q vs %q", first.Body.String(), second.Body.String())
	}
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", second.Code)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	send(`{"amount_cents":400}`)
	rec := send(`{"amount_cents":500}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler must not run for the mismatched retry, ran %d times", calls)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dues", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatal("handler must not run without a key")
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("unguarded route must pass through, code=%d calls=%d", rec.Code, calls)
	}
}
