package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/api/"})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	return c
}

func TestNewHTTPClientRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "::"} {
		if _, err := NewHTTPClient(HTTPConfig{BaseURL: raw}); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

func TestLoginSendsJSONAndDecodesUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "jane@x.com" || body["password"] != "Secret1!" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"success":true,"token":"tok_abc","user":{"id":1,"email":"jane@x.com","role":"Admin","roles":["user"]}}`))
	})

	resp, err := c.Login(context.Background(), "jane@x.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !resp.Success || resp.Token != "tok_abc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.User == nil || resp.User.ID != "1" {
		t.Fatalf("expected numeric id decoded as \"1\", got %+v", resp.User)
	}

	u := resp.User.Normalize()
	if len(u.Roles) != 2 || u.Roles[0] != "user" || u.Roles[1] != "admin" {
		t.Fatalf("expected merged roles [user admin], got %v", u.Roles)
	}
}

func TestErrorResponsesCarryServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email already registered"}`))
	})

	_, err := c.Register(context.Background(), RegisterRequest{Name: "Jane", Email: "jane@x.com", Password: "x"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Message != "email already registered" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if got := Message(err, "fallback"); got != "email already registered" {
		t.Fatalf("unexpected message %q", got)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("409 must not match ErrUnauthorized")
	}
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_abc" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ValidateToken(context.Background(), "tok_abc")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := Message(err, "fallback"); got != http.StatusText(http.StatusUnauthorized) {
		t.Fatalf("expected status text fallback, got %q", got)
	}
}

func TestTransportFailureWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	srv.Close()

	_, err = c.ForgotPassword(context.Background(), "jane@x.com")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := Message(err, "network error"); got != "network error" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"isValid":`))
	})

	_, err := c.ValidateToken(context.Background(), "tok")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-ID"); got != "req-1" {
			t.Errorf("expected pinned request id, got %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := WithRequestID(context.Background(), "req-1")
	if err := c.Do(ctx, http.MethodGet, "/ping?x=1", "", nil, &struct{}{}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestUserIDAcceptsStringAndNumber(t *testing.T) {
	var u struct {
		A UserID `json:"a"`
		B UserID `json:"b"`
		C UserID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"u-7","c":null}`), &u); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if u.A != "12" || u.B != "u-7" || u.C != "" {
		t.Fatalf("unexpected ids %+v", u)
	}
}
