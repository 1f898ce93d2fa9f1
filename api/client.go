package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Client is the remote authentication contract.
type Client interface {
	Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error)
	VerifyOTP(ctx context.Context, email, code string) (*AuthResponse, error)
	ResendOTP(ctx context.Context, email string) (*MessageResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Logout(ctx context.Context, token string) (*MessageResponse, error)
	ForgotPassword(ctx context.Context, email string) (*MessageResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*ResetResponse, error)
	ValidateToken(ctx context.Context, token string) (*ValidateResponse, error)

	// Do performs an arbitrary JSON call. A non-empty token is sent as a
	// bearer credential. in and out may be nil.
	Do(ctx context.Context, method, path, token string, in, out any) error
}

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	BaseURL   string
	Endpoints Endpoints
	UserAgent string
	// HTTPClient defaults to a client without timeout; in-flight calls end
	// only when ctx is cancelled.
	HTTPClient *http.Client
}

// HTTPClient implements Client with JSON over net/http.
type HTTPClient struct {
	base      *url.URL
	endpoints Endpoints
	userAgent string
	http      *http.Client
}

var _ Client = (*HTTPClient)(nil)

const maxErrorBody = 64 << 10

func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("base url must be http or https")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{
		base:      base,
		endpoints: cfg.Endpoints.withDefaults(),
		userAgent: cfg.UserAgent,
		http:      hc,
	}, nil
}

// BaseURL returns the parsed backend origin.
func (c *HTTPClient) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.Register, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) (*AuthResponse, error) {
	in := struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}{Email: email, OTP: code}

	var out AuthResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.VerifyOTP, "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ResendOTP(ctx context.Context, email string) (*MessageResponse, error) {
	in := struct {
		Email string `json:"email"`
	}{Email: email}

	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.ResendOTP, "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var out LoginResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.Login, "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.Logout, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	in := struct {
		Email string `json:"email"`
	}{Email: email}

	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.ForgotPassword, "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, token, newPassword string) (*ResetResponse, error) {
	in := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{Token: token, NewPassword: newPassword}

	var out ResetResponse
	if err := c.Do(ctx, http.MethodPost, c.endpoints.ResetPassword, "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ValidateToken(ctx context.Context, token string) (*ValidateResponse, error) {
	var out ValidateResponse
	if err := c.Do(ctx, http.MethodGet, c.endpoints.ValidateToken, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *HTTPClient) resolve(path string) string {
	u := *c.base
	ref, err := url.Parse(path)
	if err != nil {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
		return u.String()
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String()
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(data, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{StatusCode: resp.StatusCode, Message: msg}
}

type requestIDKey struct{}

// WithRequestID pins the X-Request-ID sent by calls made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if ctx != nil {
		if id, _ := ctx.Value(requestIDKey{}).(string); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
