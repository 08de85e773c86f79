package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func serve(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shorten", nil)
	req.RemoteAddr = remoteAddr

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_Middleware(t *testing.T) {
	l := New(0.001, 2)
	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.1:5678").Code)

	rec := serve(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.2:1234").Code)
}

func TestLimiter_cleanup(t *testing.T) {
	l := New(1, 1)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")

	now = now.Add(clientInactiveFor / 2)
	l.allow("10.0.0.2")

	now = now.Add(clientInactiveFor/2 + time.Second)
	l.cleanup()

	assert.NotContains(t, l.clients, "10.0.0.1")
	assert.Contains(t, l.clients, "10.0.0.2")
}

func TestLimiter_Run(t *testing.T) {
	l := New(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	r.RemoteAddr = "192.168.1.1:8080"
	assert.Equal(t, "192.168.1.1", clientIP(r))

	r.RemoteAddr = "192.168.1.1"
	assert.Equal(t, "192.168.1.1", clientIP(r))
}
