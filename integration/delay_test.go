package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/3xpluto/go-delay-control/internal/app"
	"github.com/3xpluto/go-delay-control/internal/client"
	"github.com/3xpluto/go-delay-control/internal/config"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/follower"
	"github.com/3xpluto/go-delay-control/internal/logging"
)

func startDelayd(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	log := logging.Discard()

	b, err := delay.NewBounds(cfg.Delay.Values())
	if err != nil {
		t.Fatal(err)
	}
	store, backend := app.OpenStore(context.Background(), cfg.Store, b, log)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	svc := delay.NewService(store, b, delay.WithLogger(log), delay.WithMetrics(delay.NewMetrics(reg)))

	srv := httptest.NewServer(app.NewMux(app.Deps{
		Config:    cfg,
		Service:   svc,
		Log:       log,
		Registry:  reg,
		Backend:   backend,
		StartedAt: time.Now(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func call(t *testing.T, method, url, body string) (int, http.Header, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, string(b)
}

func delayOf(t *testing.T, body string) int {
	t.Helper()
	var out struct {
		Delay *int `json:"delay"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	if out.Delay == nil {
		t.Fatalf("no delay in %q", body)
	}
	return *out.Delay
}

func TestDelayScenario(t *testing.T) {
	srv := startDelayd(t, memoryConfig(t))
	url := srv.URL + "/api/delay"

	steps := []struct {
		method string
		body   string
		want   int
	}{
		{http.MethodGet, "", 700},
		{http.MethodPost, `{"delay": 5000}`, 2000},
		{http.MethodGet, "", 2000},
		{http.MethodPost, `{}`, 2000},
		{http.MethodPost, `{"delay": "not-a-number"}`, 2000},
		{http.MethodPost, `not json`, 2000},
		{http.MethodPost, `{"delay": 99}`, 100},
		{http.MethodPost, `{"delay": "1250"}`, 1250},
		{http.MethodPost, `{"delay": 1999.9}`, 1999},
		{http.MethodGet, "", 1999},
	}
	for i, s := range steps {
		code, h, body := call(t, s.method, url, s.body)
		if code != http.StatusOK {
			t.Fatalf("step %d: status=%d body=%s", i, code, body)
		}
		if got := h.Get("Content-Type"); got != "application/json" {
			t.Fatalf("step %d: content-type=%q", i, got)
		}
		if got := h.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("step %d: allow-origin=%q", i, got)
		}
		if got := delayOf(t, body); got != s.want {
			t.Fatalf("step %d: %s %s => %d, want %d", i, s.method, s.body, got, s.want)
		}
	}
}

func TestDelayPreflightAndUnsupportedMethod(t *testing.T) {
	srv := startDelayd(t, memoryConfig(t))
	url := srv.URL + "/api/delay"

	code, h, body := call(t, http.MethodOptions, url, "")
	if code != http.StatusOK || body != "" {
		t.Fatalf("preflight: status=%d body=%q", code, body)
	}
	if h.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
		t.Fatalf("allow-methods=%q", h.Get("Access-Control-Allow-Methods"))
	}
	if h.Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Fatalf("allow-headers=%q", h.Get("Access-Control-Allow-Headers"))
	}

	code, h, _ = call(t, http.MethodDelete, url, "")
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("delete: status=%d", code)
	}
	if h.Get("Allow") != "GET, POST, OPTIONS" || h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("delete headers: %v", h)
	}

	// the 405 must not have touched the value
	_, _, body = call(t, http.MethodGet, url, "")
	if got := delayOf(t, body); got != 700 {
		t.Fatalf("after delete: %d", got)
	}
}

func TestConcurrentWritersEndOnAWrittenValue(t *testing.T) {
	srv := startDelayd(t, memoryConfig(t))
	c, err := client.New(srv.URL, "/api/delay")
	if err != nil {
		t.Fatal(err)
	}

	written := map[int]bool{}
	for i := 0; i < 32; i++ {
		written[100+i*50] = true
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for v := range written {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			if _, err := c.Set(ctx, v); err != nil {
				t.Error(err)
			}
		}(v)
		go func() {
			defer wg.Done()
			got, err := c.Get(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			if got < 100 || got > 2000 {
				t.Errorf("out of bounds read: %d", got)
			}
		}()
	}
	wg.Wait()

	final, err := c.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !written[final] {
		t.Fatalf("final value %d was never written", final)
	}
}

func TestFollowerTracksServer(t *testing.T) {
	srv := startDelayd(t, memoryConfig(t))
	c, err := client.New(srv.URL, "/api/delay")
	if err != nil {
		t.Fatal(err)
	}

	changes := make(chan int, 8)
	local := delay.Bounds{Min: 200, Max: 1500, Default: 1000}
	f := follower.New(c, local,
		follower.WithInterval(10*time.Millisecond),
		follower.OnChange(func(_, cur int) { changes <- cur }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	expect := func(want int) {
		t.Helper()
		select {
		case got := <-changes:
			if got != want {
				t.Fatalf("follower got %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("follower never reported %d", want)
		}
	}

	expect(700)
	if _, err := c.Set(ctx, 2000); err != nil {
		t.Fatal(err)
	}
	// server holds 2000; the follower clamps to its own max
	expect(1500)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRedisStoreSharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig(t)
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = mr.Addr()

	a := startDelayd(t, cfg)
	_, _, body := call(t, http.MethodPost, a.URL+"/api/delay", `{"delay": 1234}`)
	if got := delayOf(t, body); got != 1234 {
		t.Fatalf("write via a: %d", got)
	}

	// A second replica sharing the key sees the write. It must not go
	// through OpenStore, which resets the key on startup.
	log := logging.Discard()
	bounds := delay.Bounds{Min: 100, Max: 2000, Default: 700}
	second := delay.NewService(delay.NewRedisStore(
		redisClient(t, mr.Addr()), bounds, delay.WithKey(cfg.Store.Redis.Key),
	), bounds, delay.WithLogger(log))
	got, err := second.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != 1234 {
		t.Fatalf("second replica read %d, want 1234", got)
	}

	// Out-of-band edits are clamped on read.
	mr.Set(cfg.Store.Redis.Key, "99999")
	_, _, body = call(t, http.MethodGet, a.URL+"/api/delay", "")
	if got := delayOf(t, body); got != 2000 {
		t.Fatalf("clamped read: %d", got)
	}

	mr.Close()
	code, h, body := call(t, http.MethodGet, a.URL+"/api/delay", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("redis down: status=%d body=%s", code, body)
	}
	if h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("503 without cors headers")
	}
}

func redisClient(t *testing.T, addr string) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
