package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ehin/ehin/pkg/storage/storagemock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("Ping", mock.Anything).Return(nil).Once()
		srv := newTestServer(db, &mockFetcher{}, time.Now())

		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("StorageDown", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("Ping", mock.Anything).Return(errors.New("timeout")).Once()
		srv := newTestServer(db, &mockFetcher{}, time.Now())

		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRoot(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{}, &mockFetcher{}, time.Now())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EHIN API", w.Body.String())

	req = httptest.NewRequest("GET", "/unknown", nil)
	w = httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddleware(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("Ping", mock.Anything).Return(nil)
	srv := newTestServer(db, &mockFetcher{}, time.Now())
	srv.serverName = "ehin-00042"
	h := srv.setupHandler()

	t.Run("Headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "ehin-00042", w.Header().Get("Server"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
		assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
		assert.Equal(t, "cross-origin", w.Header().Get("Cross-Origin-Resource-Policy"))
		assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	})

	t.Run("CORS", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set("Origin", "https://ehin.fi")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "https://ehin.fi", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Expose-Headers")), "cache-control")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		req = httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example")
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Gzip", func(t *testing.T) {
		from, to := windowFor29th()
		db.On("GetPrices", mock.Anything, from, to).Return(entriesWithTomorrow(), nil).Once()
		req := httptest.NewRequest("GET", "/api/prices/2025-03-29", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	})
}

func TestRun(t *testing.T) {
	db := &storagemock.MockDatabase{}
	srv := newTestServer(db, &mockFetcher{}, time.Now())
	srv.listenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
