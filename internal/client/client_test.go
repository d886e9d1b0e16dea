package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3xpluto/go-delay-control/internal/api"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/logging"
)

func newDelayServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := delay.Bounds{Min: 100, Max: 2000, Default: 700}
	svc := delay.NewService(delay.NewMemoryStore(b), b)
	mux := http.NewServeMux()
	mux.Handle("/api/delay", api.NewHandler(svc, logging.Discard()).Route())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGetAndSet(t *testing.T) {
	srv := newDelayServer(t)
	c, err := New(srv.URL+"/", "")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/delay", c.Endpoint())

	ctx := context.Background()
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 700, v)

	v, err = c.Set(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, 2000, v)

	v, err = c.Set(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, v)

	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, v)
}

func TestClientRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com", "")
	assert.Error(t, err)
	_, err = New("://nope", "")
	assert.Error(t, err)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down/api/delay":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"store_unavailable"}`))
		case "/garbage/api/delay":
			_, _ = w.Write([]byte(`<html>`))
		default:
			_, _ = w.Write([]byte(`{"other": 1}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	c, _ := New(srv.URL+"/down", "")
	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	c, _ = New(srv.URL+"/garbage", "")
	_, err = c.Get(ctx)
	assert.ErrorContains(t, err, "decode response")

	c, _ = New(srv.URL+"/missing", "")
	_, err = c.Get(ctx)
	assert.ErrorContains(t, err, "missing delay")
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(slow.URL, "", WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, c.http.Timeout)

	start := time.Now()
	_, err = c.Get(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
