package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/authflow"
)

// ErrRegistryFull is returned when MaxClients controllers are live.
var ErrRegistryFull = errors.New("httpapi: client registry full")

// Factory builds the Controller owned by one browser client.
type Factory func(clientID string) (*authflow.Controller, error)

// FactoryConfig is the shared part of every per-client controller.
type FactoryConfig struct {
	Config    authflow.Config
	Redis     redis.UniversalClient
	Telemetry *authflow.Telemetry
	Logger    *zap.Logger
	// Configure runs on each builder after the shared options; tests use it
	// to inject an api.Client.
	Configure func(b *authflow.Builder)
}

// NewFactory returns a Factory whose controllers persist tokens to Redis
// under the client id and to a per-client cookie jar, and share one
// Telemetry.
func NewFactory(fc FactoryConfig) Factory {
	return func(clientID string) (*authflow.Controller, error) {
		b := authflow.New().
			WithConfig(fc.Config).
			WithClientID(clientID).
			WithTelemetry(fc.Telemetry)
		if fc.Redis != nil {
			b.WithRedis(fc.Redis)
		}
		if fc.Logger != nil {
			b.WithLogger(fc.Logger)
		}
		if fc.Configure != nil {
			fc.Configure(b)
		}
		return b.Build()
	}
}

type entry struct {
	controller *authflow.Controller
	lastSeen   time.Time
	boot       sync.Once
}

// RegistryConfig bounds the registry.
type RegistryConfig struct {
	// IdleTTL is how long an unused controller is kept. Zero keeps
	// controllers until Close.
	IdleTTL time.Duration
	// MaxClients caps live controllers. Zero means unbounded.
	MaxClients int
}

// Registry maps client ids to controllers. It is safe for concurrent use.
type Registry struct {
	cfg     RegistryConfig
	factory Factory
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func NewRegistry(factory Factory, cfg RegistryConfig, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		cfg:     cfg,
		factory: factory,
		log:     log.Named("registry"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Get returns the controller of clientID, building it on first use. The
// first Get of a client also bootstraps its session from the token stores;
// concurrent callers wait for that bootstrap to finish.
func (r *Registry) Get(ctx context.Context, clientID string) (*authflow.Controller, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.New("httpapi: registry closed")
	}
	e, ok := r.entries[clientID]
	if !ok {
		if r.cfg.MaxClients > 0 && len(r.entries) >= r.cfg.MaxClients {
			r.mu.Unlock()
			return nil, ErrRegistryFull
		}
		c, err := r.factory(clientID)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		e = &entry{controller: c}
		r.entries[clientID] = e
		r.log.Debug("controller created", zap.String("client_id", clientID))
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	e.boot.Do(func() {
		if err := e.controller.Bootstrap(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("bootstrap failed", zap.String("client_id", clientID), zap.Error(err))
		}
	})
	return e.controller, nil
}

// Lookup returns the controller of clientID without creating one.
func (r *Registry) Lookup(clientID string) (*authflow.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[clientID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.controller, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes controllers idle for longer than IdleTTL and reports how
// many were evicted. Their tokens stay in the stores, so a returning
// client is restored by the next bootstrap.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var evicted []*entry
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted = append(evicted, e)
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		e.controller.Close()
	}
	if len(evicted) > 0 {
		r.log.Info("idle controllers evicted", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every controller. Later Gets fail.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}
