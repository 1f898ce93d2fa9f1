package authflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/internal/fakeapi"
	"github.com/MrEthical07/authflow/tokenstore"
)

func TestBootstrapRestoresSession(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	store := tokenstore.NewMemoryStore(tokenstore.TTLConfig{})
	ctx := context.Background()

	first := newTestController(t, srv.URL, func(b *Builder) { b.WithTokenStore(store) })
	mustLogin(t, first, testAdminEmail, testAdminPassword)

	second := newTestController(t, srv.URL, func(b *Builder) { b.WithTokenStore(store) })
	if s := second.Session(); s.Status != SessionUnknown {
		t.Fatalf("expected unknown before bootstrap, got %s", s.Status)
	}
	if err := second.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !second.IsAuthenticated() || !second.IsAdmin() {
		t.Fatalf("expected restored admin session, got %+v", second.Session())
	}
	if got := second.Telemetry().MetricsSnapshot().Counters[MetricSessionRestored]; got != 1 {
		t.Fatalf("expected one restored session, got %d", got)
	}
}

func TestBootstrapWithoutTokenIsAnonymous(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if s := c.Session(); s.Status != SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.Status)
	}
	if backend.Calls("/auth/validate-token") != 0 {
		t.Fatal("no token means no validation call")
	}
}

func TestBootstrapInvalidTokenClearsStoreSilently(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	store := seededStore(t, "garbage-token")
	c := newTestController(t, srv.URL, func(b *Builder) { b.WithTokenStore(store) })
	ctx := context.Background()

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if c.IsAuthenticated() || c.Notice() != nil {
		t.Fatal("invalid token must leave an anonymous session without a notice")
	}
	if tokens, _ := store.Get(ctx); !tokens.Empty() {
		t.Fatalf("store must be cleared, got %+v", tokens)
	}
	if backend.Calls("/auth/validate-token") != 1 {
		t.Fatal("expected exactly one validation call")
	}

	// no retry on a second bootstrap
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if backend.Calls("/auth/validate-token") != 1 {
		t.Fatal("cleared store must not be validated again")
	}
}

func TestBootstrapExpiredJWTSkipsNetwork(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": testUserEmail,
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	store := seededStore(t, expired)
	c := newTestController(t, srv.URL, func(b *Builder) { b.WithTokenStore(store) })

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("expired token must not authenticate")
	}
	if backend.Calls("/auth/validate-token") != 0 {
		t.Fatal("locally expired token must not be sent to the backend")
	}
	if got := c.Telemetry().MetricsSnapshot().Counters[MetricSessionInvalidated]; got != 1 {
		t.Fatalf("expected one invalidation, got %d", got)
	}
}

func TestBootstrapUnreachableBackendInvalidates(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	store := seededStore(t, "some-token")
	c := newTestController(t, srv.URL, func(b *Builder) { b.WithTokenStore(store) })
	srv.Close()

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if s := c.Session(); s.Status != SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.Status)
	}
}

func TestFetchUnauthorizedInvalidatesSession(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	var none struct{}
	if err := c.Fetch(ctx, http.MethodGet, "/api/me", nil, &none); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	mustLogin(t, c, testUserEmail, testUserPassword)
	var me struct {
		Email string `json:"email"`
	}
	if err := c.Fetch(ctx, http.MethodGet, "/api/me", nil, &me); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if me.Email != testUserEmail {
		t.Fatalf("unexpected profile %+v", me)
	}

	backend.RevokeAll(testUserEmail)
	err := c.Fetch(ctx, http.MethodGet, "/api/me", nil, &me)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if c.IsAuthenticated() || c.Notice() != nil {
		t.Fatal("401 must invalidate silently")
	}
	if tokens, _ := c.store.Get(ctx); !tokens.Empty() {
		t.Fatal("401 must clear the store")
	}
}

func TestFetchForbiddenKeepsSession(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	mustLogin(t, c, testUserEmail, testUserPassword)
	err := c.Fetch(ctx, http.MethodGet, "/api/admin/stats", nil, nil)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if !c.IsAuthenticated() {
		t.Fatal("403 must not end the session")
	}
}

func TestOAuthCallback(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	ctx := context.Background()

	issuer := newTestController(t, srv.URL)
	mustLogin(t, issuer, testUserEmail, testUserPassword)
	token := issuer.Session().Token

	c := newTestController(t, srv.URL)
	if err := c.HandleOAuthCallback(ctx, url.Values{"access_token": {token}, "refresh_token": {"r-1"}}); err != nil {
		t.Fatalf("HandleOAuthCallback: %v", err)
	}
	if !c.IsAuthenticated() || c.User().Email != testUserEmail {
		t.Fatalf("unexpected session %+v", c.Session())
	}
	tokens, _ := c.store.Get(ctx)
	if tokens.Access != token || tokens.Refresh != "r-1" {
		t.Fatalf("tokens not persisted: %+v", tokens)
	}
}

func TestLoginAfterOAuthDropsStaleRefreshToken(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	ctx := context.Background()

	issuer := newTestController(t, srv.URL)
	mustLogin(t, issuer, testUserEmail, testUserPassword)

	c := newTestController(t, srv.URL)
	query := url.Values{"access_token": {issuer.Session().Token}, "refresh_token": {"alice-refresh"}}
	if err := c.HandleOAuthCallback(ctx, query); err != nil {
		t.Fatalf("HandleOAuthCallback: %v", err)
	}
	mustLogin(t, c, testAdminEmail, testAdminPassword)

	tokens, _ := c.store.Get(ctx)
	if tokens.Access != c.Session().Token {
		t.Fatalf("stored access token does not match the session: %+v", tokens)
	}
	if tokens.Refresh != "" {
		t.Fatalf("refresh token of the previous user survived: %q", tokens.Refresh)
	}
}

func TestOAuthCallbackFailures(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	ctx := context.Background()
	c := newTestController(t, srv.URL)

	err := c.HandleOAuthCallback(ctx, url.Values{"error": {"access_denied"}})
	if !errors.Is(err, ErrOAuthTokenMissing) {
		t.Fatalf("expected ErrOAuthTokenMissing, got %v", err)
	}
	if n := c.Notice(); n == nil || n.Message != "access_denied" {
		t.Fatalf("unexpected notice %+v", n)
	}

	if err := c.HandleOAuthCallback(ctx, url.Values{"token": {"forged"}}); err == nil {
		t.Fatal("forged token must be rejected")
	}
	if c.IsAuthenticated() {
		t.Fatal("rejected callback must not authenticate")
	}
	if tokens, _ := c.store.Get(ctx); !tokens.Empty() {
		t.Fatal("rejected callback must not persist tokens")
	}
	if got := c.Telemetry().MetricsSnapshot().Counters[MetricOAuthCallbackFailure]; got != 2 {
		t.Fatalf("expected two callback failures, got %d", got)
	}
}

func TestCloseAuthModalDropsDigitsAndNotice(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)

	c.OpenAuthModal()
	_ = c.Login(context.Background(), "", "")
	c.SetOTPDigit(0, "4")
	c.CloseAuthModal()

	v := c.View()
	if v.ModalOpen || v.Notice != nil || v.OTP.Digits[0] != "" || v.OTP.Focus != 0 {
		t.Fatalf("unexpected view %+v", v)
	}
}
