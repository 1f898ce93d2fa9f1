package authflow

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/internal/fakeapi"
	"github.com/MrEthical07/authflow/tokenstore"
)

func TestLoginSuccessDerivesRoles(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)

	c.OpenAuthModal()
	mustLogin(t, c, "  ROOT@x.com ", testAdminPassword)

	v := c.View()
	if !v.Session.IsAuthenticated || !v.Session.IsAdmin || v.Session.IsSuperAdmin {
		t.Fatalf("unexpected session view %+v", v.Session)
	}
	if v.ModalOpen {
		t.Fatal("modal must close after login")
	}
	if !c.HasAnyRole("editor", "ADMIN") {
		t.Fatal("HasAnyRole must be case-insensitive")
	}
	if ok, _ := c.Authorize("/admin/users"); !ok {
		t.Fatal("admin must pass the admin guard")
	}
}

func TestLoginRejectionLeavesSessionUntouched(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	err := c.Login(ctx, testUserEmail, "wrong-password")
	if !errors.Is(err, ErrLoginRejected) {
		t.Fatalf("expected ErrLoginRejected, got %v", err)
	}
	if n := c.Notice(); n == nil || n.Message != "Invalid email or password" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if c.IsAuthenticated() || c.Loading() {
		t.Fatal("failed login must not authenticate and must reset loading")
	}
	if s := c.Session(); s.Status != SessionUnknown {
		t.Fatalf("failed login must not touch the session, got %s", s.Status)
	}

	// the next submission clears the previous error before calling out
	mustLogin(t, c, testUserEmail, testUserPassword)
	if c.Notice() != nil {
		t.Fatal("successful login must clear the error notice")
	}
}

func TestLoginLockoutThroughRedis(t *testing.T) {
	_, rdb := newTestRedis(t)
	_, srv := newTestBackend(t, fakeapi.Config{Redis: rdb, MaxLoginFailures: 2})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.Login(ctx, testUserEmail, "nope-nope"); !errors.Is(err, ErrLoginRejected) {
			t.Fatalf("attempt %d: expected rejection, got %v", i+1, err)
		}
	}
	err := c.Login(ctx, testUserEmail, testUserPassword)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if n := c.Notice(); n == nil || n.Message != "Too many failed attempts. Please try again later." {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	srv.Close()

	err := c.Login(context.Background(), testUserEmail, testUserPassword)
	if !errors.Is(err, api.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if n := c.Notice(); n == nil || n.Message != "Network error. Please check your connection and try again." {
		t.Fatalf("unexpected notice %+v", n)
	}
	if c.Loading() {
		t.Fatal("loading must be false after a transport error")
	}
}

func TestOverlappingLoginIsRejected(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	release := backend.Block("/auth/login")
	done := make(chan error, 1)
	go func() {
		done <- c.Login(ctx, testUserEmail, testUserPassword)
	}()
	waitFor(t, c.Loading)

	if err := c.Login(ctx, testUserEmail, testUserPassword); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}
	if c.Loading() {
		t.Fatal("loading must reset after the call")
	}
	if got := backend.Calls("/auth/login"); got != 1 {
		t.Fatalf("expected one backend call, got %d", got)
	}
	if got := c.Telemetry().MetricsSnapshot().Counters[MetricOverlapRejected]; got != 1 {
		t.Fatalf("expected one overlap rejection, got %d", got)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	mustLogin(t, c, testUserEmail, testUserPassword)
	token := c.Session().Token

	if home := c.Logout(ctx); home != "/" {
		t.Fatalf("expected public home, got %q", home)
	}
	if c.IsAuthenticated() || c.User() != nil {
		t.Fatal("session must be anonymous after logout")
	}
	if s := c.Session(); s.Status != SessionAnonymous || s.Token != "" {
		t.Fatalf("unexpected session %+v", s)
	}
	tokens, _ := c.store.Get(ctx)
	if !tokens.Empty() {
		t.Fatalf("store must be empty, got %+v", tokens)
	}
	if backend.Calls("/auth/logout") != 1 {
		t.Fatal("logout must call the backend once")
	}

	// the server-side token is gone as well
	restored := newTestController(t, srv.URL, func(b *Builder) {
		b.WithTokenStore(seededStore(t, token))
	})
	if err := restored.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if restored.IsAuthenticated() {
		t.Fatal("revoked token must not restore a session")
	}
}

func TestOverlappingLogoutStillEndsSession(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	mustLogin(t, c, testUserEmail, testUserPassword)

	release := backend.Block("/auth/logout")
	done := make(chan string, 1)
	go func() {
		done <- c.Logout(ctx)
	}()
	waitFor(t, c.Loading)

	if home := c.Logout(ctx); home != "/" {
		t.Fatalf("expected public home, got %q", home)
	}
	if c.IsAuthenticated() || c.User() != nil {
		t.Fatal("second logout returned while the session was still authenticated")
	}

	release()
	if home := <-done; home != "/" {
		t.Fatalf("expected public home, got %q", home)
	}
	if backend.Calls("/auth/logout") != 1 {
		t.Fatal("overlapping logout must not call the backend again")
	}
	if tokens, _ := c.store.Get(ctx); !tokens.Empty() {
		t.Fatalf("store must be empty, got %+v", tokens)
	}
}

func TestLogoutRemoteFailureStillClearsLocally(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	mustLogin(t, c, testUserEmail, testUserPassword)
	backend.FailNext("/auth/logout", http.StatusInternalServerError, "boom")

	c.Logout(ctx)
	if c.IsAuthenticated() {
		t.Fatal("local session must be cleared even when remote logout fails")
	}
	if c.Notice() != nil {
		t.Fatal("remote logout failure must not surface a notice")
	}
	snap := c.Telemetry().MetricsSnapshot()
	if snap.Counters[MetricLogout] != 1 || snap.Counters[MetricLogoutRemoteFailure] != 1 {
		t.Fatalf("unexpected logout counters %+v", snap.Counters)
	}
}

func TestTokenPersistFailureKeepsInMemorySession(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL, func(b *Builder) {
		b.WithTokenStore(failingStore{})
	})

	mustLogin(t, c, testUserEmail, testUserPassword)
	if !c.IsAuthenticated() {
		t.Fatal("persistence failure must not fail the login")
	}
	if got := c.Telemetry().MetricsSnapshot().Counters[MetricTokenPersistFailure]; got != 1 {
		t.Fatalf("expected one persist failure, got %d", got)
	}
}

func seededStore(t *testing.T, access string) tokenstore.Store {
	t.Helper()
	s := tokenstore.NewMemoryStore(tokenstore.TTLConfig{})
	if err := s.Set(context.Background(), tokenstore.Tokens{Access: access}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return s
}
