package authflow

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authflow/internal/fakeapi"
	"github.com/MrEthical07/authflow/tokenstore"
)

const (
	testAdminEmail    = "root@x.com"
	testAdminPassword = "admin-pass-1"
	testUserEmail     = "alice@x.com"
	testUserPassword  = "alice-pass-1"
)

func newTestBackend(t *testing.T, cfg fakeapi.Config) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	if cfg.Users == nil {
		cfg.Users = []fakeapi.SeedUser{
			{Name: "Root", Email: testAdminEmail, Password: testAdminPassword, Roles: []string{"admin"}},
			{Name: "Alice", Email: testUserEmail, Password: testUserPassword},
		}
	}
	backend, err := fakeapi.New(cfg)
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestController(t *testing.T, baseURL string, configure ...func(*Builder)) *Controller {
	t.Helper()
	b := New().WithConfig(testConfig(baseURL))
	for _, fn := range configure {
		fn(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingStore rejects every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Set(context.Context, tokenstore.Tokens) error { return errStoreDown }
func (failingStore) Get(context.Context) (tokenstore.Tokens, error) {
	return tokenstore.Tokens{}, errStoreDown
}
func (failingStore) Clear(context.Context) error { return errStoreDown }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustLogin(t *testing.T, c *Controller, email, password string) {
	t.Helper()
	if err := c.Login(context.Background(), email, password); err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
}
