package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/metrics/export/prometheus"
	"github.com/MrEthical07/authflow/middleware"
)

const (
	// DefaultClientCookie names the cookie carrying the client id.
	DefaultClientCookie = "af_client"

	clientCookieTTL = 30 * 24 * time.Hour
	maxBodyBytes    = 64 << 10
)

var errNoClient = errors.New("httpapi: request carries no client id")

// Config controls the HTTP surface. Routes must match the controller
// configuration so the reset and callback paths line up.
type Config struct {
	ClientCookie  string
	SecureCookies bool
	Routes        authflow.RoutesConfig
}

// Deps are the collaborators of a Server. Limiter and Logger are optional.
type Deps struct {
	Registry  *Registry
	Telemetry *authflow.Telemetry
	Limiter   *rate.Limiter
	Logger    *zap.Logger
}

// Server exposes per-client controllers as JSON endpoints.
type Server struct {
	cfg       Config
	registry  *Registry
	telemetry *authflow.Telemetry
	limiter   *rate.Limiter
	log       *zap.Logger
	mux       *http.ServeMux
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, errors.New("httpapi: registry required")
	}
	if cfg.ClientCookie == "" {
		cfg.ClientCookie = DefaultClientCookie
	}
	if cfg.Routes.PublicHome == "" {
		cfg.Routes = authflow.DefaultConfig().Routes
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:       cfg,
		registry:  deps.Registry,
		telemetry: deps.Telemetry,
		limiter:   deps.Limiter,
		log:       log.Named("httpapi"),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /auth/view", s.withController(s.view))
	s.mux.HandleFunc("POST /auth/modal/open", s.withController(s.openModal))
	s.mux.HandleFunc("POST /auth/modal/close", s.withController(s.closeModal))
	s.mux.HandleFunc("POST /auth/tab", s.withController(s.switchTab))

	s.mux.HandleFunc("POST /auth/register", s.limited(s.withController(s.register)))
	s.mux.HandleFunc("POST /auth/otp/verify", s.limited(s.withController(s.verifyOTP)))
	s.mux.HandleFunc("POST /auth/otp/resend", s.limited(s.withController(s.resendOTP)))
	s.mux.HandleFunc("POST /auth/otp/digit", s.withController(s.otpDigit))
	s.mux.HandleFunc("POST /auth/otp/backspace", s.withController(s.otpBackspace))
	s.mux.HandleFunc("POST /auth/login", s.limited(s.withController(s.login)))
	s.mux.HandleFunc("POST /auth/logout", s.withController(s.logout))
	s.mux.HandleFunc("POST /auth/forgot-password/show", s.withController(s.showForgotPassword))
	s.mux.HandleFunc("POST /auth/forgot-password", s.limited(s.withController(s.forgotPassword)))
	s.mux.HandleFunc("POST /auth/back-to-login", s.withController(s.backToLogin))
	s.mux.HandleFunc("POST /auth/reset-password", s.limited(s.withController(s.resetPassword)))

	s.mux.HandleFunc("GET "+s.cfg.Routes.ResetPasswordPath, s.withController(s.resetRoute))
	s.mux.HandleFunc("GET "+s.cfg.Routes.OAuthCallbackPath, s.withController(s.oauthCallback))

	s.mux.Handle("GET /api/me", middleware.RequireAuthenticated(s.resolve)(http.HandlerFunc(s.me)))

	guard := middleware.Guard(s.resolve, s.cfg.Routes.PublicHome, func(*http.Request) {
		s.telemetry.RecordGuardDenied()
	})
	s.mux.Handle("GET /admin/", guard(http.HandlerFunc(s.adminStats)))

	if s.telemetry != nil {
		reg := prom.NewRegistry()
		reg.MustRegister(
			prometheus.NewCollector(s.telemetry),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

type controllerHandler func(w http.ResponseWriter, r *http.Request, c *authflow.Controller)

// withController resolves the caller's controller, issuing a client id
// cookie on the first visit, and tags the context with request and client
// ids.
func (s *Server) withController(h controllerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := s.clientID(r)
		if !ok {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.ClientCookie,
				Value:    clientID,
				Path:     "/",
				MaxAge:   int(clientCookieTTL / time.Second),
				HttpOnly: true,
				Secure:   s.cfg.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := requestContext(r, clientID)
		c, err := s.registry.Get(ctx, clientID)
		if err != nil {
			s.log.Error("controller unavailable", zap.String("client_id", clientID), zap.Error(err))
			status := http.StatusInternalServerError
			if errors.Is(err, ErrRegistryFull) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, errorBody{Error: "unavailable"})
			return
		}
		h(w, r.WithContext(ctx), c)
	}
}

// resolve finds the client for the middleware guards. A request without a
// client cookie has no session and is never given one here.
func (s *Server) resolve(r *http.Request) (middleware.Authorizer, error) {
	clientID, ok := s.clientID(r)
	if !ok {
		return nil, errNoClient
	}
	c, err := s.registry.Get(requestContext(r, clientID), clientID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) clientID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cfg.ClientCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}

func requestContext(r *http.Request, clientID string) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx := authflow.WithRequestID(r.Context(), reqID)
	return authflow.WithClientID(ctx, clientID)
}

// limited applies the per-IP budget to credential-bearing endpoints. A
// Redis failure lets the request through.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Enabled() {
			next(w, r)
			return
		}
		key := "ip:" + clientIP(r)
		if err := s.limiter.Allow(r.Context(), key); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				if retry := s.limiter.RetryAfter(r.Context(), key); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
				}
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited"})
				return
			}
			s.log.Warn("rate limiter unavailable", zap.Error(err))
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
