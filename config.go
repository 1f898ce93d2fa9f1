package authflow

import (
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Config holds every tunable of a Controller. Build clones it, so later
// changes to the caller's copy have no effect.
type Config struct {
	API      APIConfig
	Storage  StorageConfig
	OTP      OTPConfig
	Password PasswordConfig
	Routes   RoutesConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig describes the remote auth backend. BaseURL is only consulted
// when no client is injected through Builder.WithAPI.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig controls where tokens are persisted and for how long.
type StorageConfig struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	AccessCookieName  string
	RefreshCookieName string
	RedisPrefix       string
}

/*
====================================
OTP CONFIG
====================================
*/

type OTPConfig struct {
	Digits         int
	ResendCooldown time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig is the local password policy applied before register
// and reset calls. MinStrengthScore is a zxcvbn score in [0,4]; 0 disables
// the strength estimate.
type PasswordConfig struct {
	MinLength        int
	MinStrengthScore int
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RouteRule protects every path under Prefix. A user passes when they
// hold any role in AnyOf.
type RouteRule struct {
	Prefix string
	AnyOf  []string
}

type RoutesConfig struct {
	PublicHome        string
	ResetPasswordPath string
	ResetTokenParam   string
	OAuthCallbackPath string
	Protected         []RouteRule
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes bootstrap. Tokens whose exp lies more than
// ExpiryLeeway in the past are discarded without a validate call.
type SessionConfig struct {
	ExpiryLeeway         time.Duration
	SkipLocalExpiryCheck bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when Builder.WithConfig is
// never called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   10 * time.Second,
			UserAgent: "authflow",
		},
		Storage: StorageConfig{
			AccessTTL:         7 * 24 * time.Hour,
			RefreshTTL:        30 * 24 * time.Hour,
			AccessCookieName:  "token",
			RefreshCookieName: "refreshToken",
			RedisPrefix:       "aft",
		},
		OTP: OTPConfig{
			Digits:         6,
			ResendCooldown: 30 * time.Second,
		},
		Password: PasswordConfig{
			MinLength:        8,
			MinStrengthScore: 0,
		},
		Routes: RoutesConfig{
			PublicHome:        "/",
			ResetPasswordPath: "/reset-password",
			ResetTokenParam:   "token",
			OAuthCallbackPath: "/auth/callback",
			Protected: []RouteRule{
				{Prefix: "/admin", AnyOf: []string{RoleAdmin, RoleSuperAdmin}},
			},
		},
		Session: SessionConfig{
			ExpiryLeeway: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.Protected = make([]RouteRule, len(cfg.Routes.Protected))
	for i, r := range cfg.Routes.Protected {
		out.Routes.Protected[i] = RouteRule{Prefix: r.Prefix, AnyOf: slices.Clone(r.AnyOf)}
	}
	return out
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("API BaseURL must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	if c.Storage.AccessTTL <= 0 {
		return errors.New("Storage AccessTTL must be > 0")
	}
	if c.Storage.RefreshTTL <= 0 {
		return errors.New("Storage RefreshTTL must be > 0")
	}
	if c.Storage.AccessCookieName == "" || c.Storage.RefreshCookieName == "" {
		return errors.New("Storage cookie names must be set")
	}
	if c.Storage.AccessCookieName == c.Storage.RefreshCookieName {
		return errors.New("Storage cookie names must differ")
	}
	if c.Storage.RedisPrefix == "" || strings.Contains(c.Storage.RedisPrefix, ":") {
		return errors.New("Storage RedisPrefix must be non-empty and contain no ':'")
	}

	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.ResendCooldown < 0 {
		return errors.New("OTP ResendCooldown must be >= 0")
	}

	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MinStrengthScore < 0 || c.Password.MinStrengthScore > 4 {
		return errors.New("Password MinStrengthScore must be between 0 and 4")
	}

	if !strings.HasPrefix(c.Routes.PublicHome, "/") {
		return errors.New("Routes PublicHome must be an absolute path")
	}
	if !strings.HasPrefix(c.Routes.ResetPasswordPath, "/") {
		return errors.New("Routes ResetPasswordPath must be an absolute path")
	}
	if c.Routes.ResetTokenParam == "" {
		return errors.New("Routes ResetTokenParam must be set")
	}
	if !strings.HasPrefix(c.Routes.OAuthCallbackPath, "/") {
		return errors.New("Routes OAuthCallbackPath must be an absolute path")
	}
	for _, r := range c.Routes.Protected {
		if !strings.HasPrefix(r.Prefix, "/") {
			return errors.New("Routes Protected prefix must be an absolute path")
		}
		if len(r.AnyOf) == 0 {
			return errors.New("Routes Protected rule must name at least one role")
		}
	}

	if c.Session.ExpiryLeeway < 0 {
		return errors.New("Session ExpiryLeeway must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
