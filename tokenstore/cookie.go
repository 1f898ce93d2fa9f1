package tokenstore

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// CookieConfig names the cookies and their expiry.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	TTLConfig
}

// CookieStore keeps tokens as cookies in an http.CookieJar scoped to origin.
// A jar shared with the API http.Client makes the cookies ride along with
// backend requests the same way a browser would send them.
type CookieStore struct {
	jar    http.CookieJar
	origin *url.URL
	cfg    CookieConfig
	now    func() time.Time
}

func NewCookieStore(jar http.CookieJar, origin *url.URL, cfg CookieConfig) (*CookieStore, error) {
	if jar == nil {
		return nil, errors.New("cookie jar required")
	}
	if origin == nil || origin.Host == "" {
		return nil, errors.New("cookie origin must be an absolute URL")
	}
	if cfg.AccessName == "" {
		cfg.AccessName = DefaultAccessName
	}
	if cfg.RefreshName == "" {
		cfg.RefreshName = DefaultRefreshName
	}
	cfg.TTLConfig = cfg.TTLConfig.withDefaults()

	return &CookieStore{
		jar:    jar,
		origin: origin,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

func (s *CookieStore) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  s.now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		Secure:   s.origin.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *CookieStore) Set(_ context.Context, tokens Tokens) error {
	if tokens.Empty() {
		return ErrEmptyToken
	}

	cookies := []*http.Cookie{s.cookie(s.cfg.AccessName, tokens.Access, s.cfg.AccessTTL)}
	if tokens.Refresh != "" {
		cookies = append(cookies, s.cookie(s.cfg.RefreshName, tokens.Refresh, s.cfg.RefreshTTL))
	} else {
		cookies = append(cookies, expiredCookie(s.cfg.RefreshName))
	}
	s.jar.SetCookies(s.origin, cookies)
	return nil
}

func (s *CookieStore) Get(_ context.Context) (Tokens, error) {
	var out Tokens
	for _, c := range s.jar.Cookies(s.origin) {
		switch c.Name {
		case s.cfg.AccessName:
			out.Access = c.Value
		case s.cfg.RefreshName:
			out.Refresh = c.Value
		}
	}
	return out, nil
}

func (s *CookieStore) Clear(context.Context) error {
	s.jar.SetCookies(s.origin, []*http.Cookie{
		expiredCookie(s.cfg.AccessName),
		expiredCookie(s.cfg.RefreshName),
	})
	return nil
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	}
}
