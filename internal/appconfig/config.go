// Package appconfig loads the settings of the authflow binaries from the
// environment. Every key is bound to AUTHFLOW_<SECTION>_<KEY>, with the
// unprefixed name accepted as a fallback.
package appconfig

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/rate"
)

const envPrefix = "AUTHFLOW"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	API       APISettings       `mapstructure:"api"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Tokens    TokenSettings     `mapstructure:"tokens"`
	OTP       OTPSettings       `mapstructure:"otp"`
	Password  PasswordSettings  `mapstructure:"password"`
	Routes    RouteSettings     `mapstructure:"routes"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	// Demo serves an in-process auth backend instead of API.BaseURL.
	Demo bool `mapstructure:"demo"`
}

type APISettings struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// RedisSettings configures the durable token store. An empty Host keeps
// tokens in memory only.
type RedisSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
}

type TokenSettings struct {
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type OTPSettings struct {
	Digits         int           `mapstructure:"digits"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	MinScore  int `mapstructure:"min_score"`
}

type RouteSettings struct {
	PublicHome     string   `mapstructure:"public_home"`
	AdminPrefix    string   `mapstructure:"admin_prefix"`
	AdminRoles     []string `mapstructure:"admin_roles"`
	ResetPath      string   `mapstructure:"reset_path"`
	OAuthCallback  string   `mapstructure:"oauth_callback"`
	ResetTokenName string   `mapstructure:"reset_token_name"`
}

type HTTPSettings struct {
	ClientCookie  string        `mapstructure:"client_cookie"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxClients    int           `mapstructure:"max_clients"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// RateLimitSettings bounds credential-bearing requests per client IP. A
// zero MaxAttempts disables the limiter.
type RateLimitSettings struct {
	Window      time.Duration `mapstructure:"window"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type TelemetrySettings struct {
	Metrics        bool `mapstructure:"metrics"`
	Latency        bool `mapstructure:"latency"`
	Audit          bool `mapstructure:"audit"`
	AuditBuffer    int  `mapstructure:"audit_buffer"`
	AuditDropsFull bool `mapstructure:"audit_drops_full"`
}

var keys = []string{
	"app.name",
	"app.env",
	"app.host",
	"app.port",
	"app.log_level",
	"app.demo",
	"api.base_url",
	"api.timeout",
	"api.user_agent",
	"redis.host",
	"redis.port",
	"redis.db",
	"redis.password",
	"redis.prefix",
	"tokens.access_ttl",
	"tokens.refresh_ttl",
	"otp.digits",
	"otp.resend_cooldown",
	"password.min_length",
	"password.min_score",
	"routes.public_home",
	"routes.admin_prefix",
	"routes.admin_roles",
	"routes.reset_path",
	"routes.oauth_callback",
	"routes.reset_token_name",
	"http.client_cookie",
	"http.secure_cookies",
	"http.idle_ttl",
	"http.sweep_interval",
	"http.max_clients",
	"http.read_timeout",
	"http.write_timeout",
	"rate_limit.window",
	"rate_limit.max_attempts",
	"telemetry.metrics",
	"telemetry.latency",
	"telemetry.audit",
	"telemetry.audit_buffer",
	"telemetry.audit_drops_full",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, keys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if !cfg.App.Demo && cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required unless app.demo is set")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	lib := authflow.DefaultConfig()

	v.SetDefault("app.name", "authflow-web")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.demo", false)

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", lib.API.Timeout.String())
	v.SetDefault("api.user_agent", lib.API.UserAgent)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.prefix", lib.Storage.RedisPrefix)

	v.SetDefault("tokens.access_ttl", "168h")
	v.SetDefault("tokens.refresh_ttl", "720h")

	v.SetDefault("otp.digits", lib.OTP.Digits)
	v.SetDefault("otp.resend_cooldown", lib.OTP.ResendCooldown.String())

	v.SetDefault("password.min_length", lib.Password.MinLength)
	v.SetDefault("password.min_score", lib.Password.MinStrengthScore)

	v.SetDefault("routes.public_home", lib.Routes.PublicHome)
	v.SetDefault("routes.admin_prefix", "/admin")
	v.SetDefault("routes.admin_roles", []string{authflow.RoleAdmin, authflow.RoleSuperAdmin})
	v.SetDefault("routes.reset_path", lib.Routes.ResetPasswordPath)
	v.SetDefault("routes.oauth_callback", lib.Routes.OAuthCallbackPath)
	v.SetDefault("routes.reset_token_name", lib.Routes.ResetTokenParam)

	v.SetDefault("http.client_cookie", "af_client")
	v.SetDefault("http.secure_cookies", false)
	v.SetDefault("http.idle_ttl", "30m")
	v.SetDefault("http.sweep_interval", "1m")
	v.SetDefault("http.max_clients", 10000)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.max_attempts", 20)

	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.latency", true)
	v.SetDefault("telemetry.audit", false)
	v.SetDefault("telemetry.audit_buffer", lib.Audit.BufferSize)
	v.SetDefault("telemetry.audit_drops_full", true)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// IsProduction reports whether App.Env names a production deployment.
func (c *AppConfig) IsProduction() bool {
	env := strings.ToLower(c.App.Env)
	return env == "production" || env == "prod"
}

func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort(c.App.Host, strconv.Itoa(c.App.Port))
}

// RedisOptions returns nil when no Redis host is configured.
func (c *AppConfig) RedisOptions() *redis.Options {
	if c.Redis.Host == "" {
		return nil
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port)),
		DB:       c.Redis.DB,
		Password: c.Redis.Password,
	}
}

// Limiter returns the request budget of the HTTP layer.
func (c *AppConfig) Limiter() rate.Config {
	return rate.Config{
		Prefix:      c.Redis.Prefix + "-rl",
		MaxAttempts: c.RateLimit.MaxAttempts,
		Window:      c.RateLimit.Window,
	}
}

// Controller maps the settings onto the library configuration. The result
// still has to pass authflow.Config.Validate.
func (c *AppConfig) Controller() authflow.Config {
	cfg := authflow.DefaultConfig()

	cfg.API.BaseURL = c.API.BaseURL
	cfg.API.Timeout = c.API.Timeout
	cfg.API.UserAgent = c.API.UserAgent

	cfg.Storage.AccessTTL = c.Tokens.AccessTTL
	cfg.Storage.RefreshTTL = c.Tokens.RefreshTTL
	cfg.Storage.RedisPrefix = c.Redis.Prefix

	cfg.OTP.Digits = c.OTP.Digits
	cfg.OTP.ResendCooldown = c.OTP.ResendCooldown

	cfg.Password.MinLength = c.Password.MinLength
	cfg.Password.MinStrengthScore = c.Password.MinScore

	cfg.Routes.PublicHome = c.Routes.PublicHome
	cfg.Routes.ResetPasswordPath = c.Routes.ResetPath
	cfg.Routes.OAuthCallbackPath = c.Routes.OAuthCallback
	cfg.Routes.ResetTokenParam = c.Routes.ResetTokenName
	cfg.Routes.Protected = nil
	if c.Routes.AdminPrefix != "" {
		cfg.Routes.Protected = []authflow.RouteRule{{Prefix: c.Routes.AdminPrefix, AnyOf: c.Routes.AdminRoles}}
	}

	cfg.Metrics.Enabled = c.Telemetry.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Telemetry.Metrics && c.Telemetry.Latency
	cfg.Audit.Enabled = c.Telemetry.Audit
	cfg.Audit.BufferSize = c.Telemetry.AuditBuffer
	cfg.Audit.DropIfFull = c.Telemetry.AuditDropsFull

	return cfg
}
