package authflow

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/tokenstore"
)

// Builder assembles a Controller. A Builder is single use.
type Builder struct {
	config Config
	client api.Client
	store  tokenstore.Store
	redis  redis.UniversalClient
	jar    http.CookieJar

	logger    *zap.Logger
	auditSink AuditSink
	telemetry *Telemetry
	clientID  string

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAPI injects the backend client. Without it Build creates an
// api.HTTPClient from Config.API.BaseURL.
func (b *Builder) WithAPI(client api.Client) *Builder {
	b.client = client
	return b
}

// WithTokenStore replaces the default store chain entirely.
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis makes Redis the durable half of the default store chain.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCookieJar shares jar between the HTTP client and the cookie store.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.jar = jar
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithTelemetry shares t between controllers. The caller then owns t and
// must Close it; Controller.Close leaves shared telemetry alone.
func (b *Builder) WithTelemetry(t *Telemetry) *Builder {
	b.telemetry = t
	return b
}

// WithClientID names the browser client. It scopes the Redis keys. A
// random UUID is used when unset.
func (b *Builder) WithClientID(id string) *Builder {
	b.clientID = id
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientID := b.clientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	// -------- BACKEND CLIENT --------
	client := b.client
	jar := b.jar
	var origin *url.URL
	if client == nil {
		if cfg.API.BaseURL == "" {
			return nil, errors.New("API client or API BaseURL required")
		}
		if jar == nil {
			var err error
			if jar, err = cookiejar.New(nil); err != nil {
				return nil, err
			}
		}
		hc, err := api.NewHTTPClient(api.HTTPConfig{
			BaseURL:    cfg.API.BaseURL,
			UserAgent:  cfg.API.UserAgent,
			HTTPClient: &http.Client{Timeout: cfg.API.Timeout, Jar: jar},
		})
		if err != nil {
			return nil, err
		}
		client = hc
		origin = hc.BaseURL()
	} else if cfg.API.BaseURL != "" {
		origin, _ = url.Parse(cfg.API.BaseURL)
	}

	// -------- TOKEN STORE --------
	store := b.store
	if store == nil {
		ttl := tokenstore.TTLConfig{
			AccessTTL:  cfg.Storage.AccessTTL,
			RefreshTTL: cfg.Storage.RefreshTTL,
		}
		var stores []tokenstore.Store
		if b.redis != nil {
			stores = append(stores, tokenstore.NewRedisStore(b.redis, cfg.Storage.RedisPrefix, clientID, ttl))
		} else {
			stores = append(stores, tokenstore.NewMemoryStore(ttl))
		}
		if jar != nil && origin != nil {
			cs, err := tokenstore.NewCookieStore(jar, origin, tokenstore.CookieConfig{
				AccessName:  cfg.Storage.AccessCookieName,
				RefreshName: cfg.Storage.RefreshCookieName,
				TTLConfig:   ttl,
			})
			if err != nil {
				return nil, err
			}
			stores = append(stores, cs)
		}
		store = tokenstore.NewChain(stores...)
	}

	// -------- LOGGING / TELEMETRY --------
	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("authflow").With(zap.String("client_id", clientID))

	telemetry := b.telemetry
	owns := false
	if telemetry == nil {
		telemetry = NewTelemetry(cfg.Audit, cfg.Metrics, b.auditSink)
		owns = true
	}

	c := &Controller{
		cfg:           cfg,
		client:        client,
		store:         store,
		log:           log,
		telemetry:     telemetry,
		ownsTelemetry: owns,
		clientID:      clientID,
		now:           time.Now,
		state:         StateInitial,
		tab:           TabLogin,
		inFlight:      make(map[operation]struct{}, int(opCount)),
		session:       Session{Status: SessionUnknown},
		otp:           NewOTPInput(cfg.OTP.Digits),
	}

	b.built = true

	return c, nil
}
