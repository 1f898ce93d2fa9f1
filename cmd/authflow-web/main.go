// Command authflow-web serves the authflow backend-for-frontend.
//
// Configuration comes from AUTHFLOW_* environment variables, optionally
// loaded from a .env file. With AUTHFLOW_APP_DEMO=true the service starts
// an in-process auth backend and an in-memory Redis so it runs without
// any infrastructure:
//
//	AUTHFLOW_APP_DEMO=true go run ./cmd/authflow-web
//
//	curl -i -c jar.txt -b jar.txt -X POST localhost:8080/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"admin@example.com","password":"admin-pass-1"}'
//	curl -i -b jar.txt localhost:8080/admin/stats
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/httpapi"
	"github.com/MrEthical07/authflow/internal/appconfig"
	"github.com/MrEthical07/authflow/internal/fakeapi"
	"github.com/MrEthical07/authflow/internal/logger"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/internal/security"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("service stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.AppConfig, zl *zap.Logger) error {
	// ---------- infrastructure ----------
	var rdb redis.UniversalClient
	if opts := cfg.RedisOptions(); opts != nil {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	} else if cfg.App.Demo {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		zl.Info("using in-memory redis", zap.String("addr", mr.Addr()))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	lib := cfg.Controller()
	if cfg.App.Demo {
		baseURL, stop, err := startDemoBackend(rdb, zl)
		if err != nil {
			return err
		}
		defer stop()
		lib.API.BaseURL = baseURL
	}
	if err := lib.Validate(); err != nil {
		return err
	}

	// ---------- security posture ----------
	limiterCfg := cfg.Limiter()
	report := security.BuildReport(security.ReportInput{
		ProductionMode:     cfg.IsProduction(),
		APIBaseURL:         lib.API.BaseURL,
		PasswordMinLength:  lib.Password.MinLength,
		PasswordMinScore:   lib.Password.MinStrengthScore,
		OTPResendCooldown:  lib.OTP.ResendCooldown,
		DurableStore:       rdb != nil,
		CookieSecure:       cfg.HTTP.SecureCookies,
		ProtectedPrefixes:  protectedPrefixes(lib),
		RequestRateLimited: rdb != nil && limiterCfg.MaxAttempts > 0,
	})
	for _, f := range report.Findings {
		zl.Warn("security finding",
			zap.String("severity", string(f.Severity)),
			zap.String("code", f.Code),
			zap.String("message", f.Message),
		)
	}
	if report.ProductionMode && report.Critical() {
		return errors.New("refusing to start in production with critical security findings")
	}

	// ---------- controllers ----------
	var sink authflow.AuditSink
	if lib.Audit.Enabled {
		sink = authflow.NewJSONWriterSink(os.Stdout)
	}
	telemetry := authflow.NewTelemetry(lib.Audit, lib.Metrics, sink)
	defer telemetry.Close()

	registry := httpapi.NewRegistry(httpapi.NewFactory(httpapi.FactoryConfig{
		Config:    lib,
		Redis:     rdb,
		Telemetry: telemetry,
		Logger:    zl,
	}), httpapi.RegistryConfig{
		IdleTTL:    cfg.HTTP.IdleTTL,
		MaxClients: cfg.HTTP.MaxClients,
	}, zl)
	defer registry.Close()
	go registry.Run(ctx, cfg.HTTP.SweepInterval)

	var limiter *rate.Limiter
	if rdb != nil {
		limiter = rate.New(rdb, limiterCfg)
	}

	handler, err := httpapi.NewServer(httpapi.Config{
		ClientCookie:  cfg.HTTP.ClientCookie,
		SecureCookies: cfg.HTTP.SecureCookies,
		Routes:        lib.Routes,
	}, httpapi.Deps{
		Registry:  registry,
		Telemetry: telemetry,
		Limiter:   limiter,
		Logger:    zl,
	})
	if err != nil {
		return err
	}

	// ---------- serve ----------
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("backend", lib.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zl.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func protectedPrefixes(cfg authflow.Config) []string {
	out := make([]string, 0, len(cfg.Routes.Protected))
	for _, r := range cfg.Routes.Protected {
		out = append(out, r.Prefix)
	}
	return out
}

// startDemoBackend serves the in-process auth backend on a loopback port.
func startDemoBackend(rdb redis.UniversalClient, zl *zap.Logger) (string, func(), error) {
	backend, err := fakeapi.New(fakeapi.Config{
		FixedOTP: "123456",
		Redis:    rdb,
		Users: []fakeapi.SeedUser{
			{Name: "Admin", Email: "admin@example.com", Password: "admin-pass-1", Roles: []string{authflow.RoleAdmin}},
			{Name: "Student", Email: "student@example.com", Password: "student-pass-1"},
		},
	})
	if err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("demo backend stopped", zap.Error(err))
		}
	}()

	baseURL := "http://" + ln.Addr().String()
	zl.Info("demo backend started", zap.String("url", baseURL), zap.String("otp", "123456"))
	return baseURL, func() { _ = srv.Close() }, nil
}
