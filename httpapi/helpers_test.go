package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/fakeapi"
	"github.com/MrEthical07/authflow/internal/rate"
)

const (
	adminEmail    = "root@x.com"
	adminPassword = "admin-pass-1"
	userEmail     = "alice@x.com"
	userPassword  = "alice-pass-1"
)

type testEnv struct {
	backend   *fakeapi.Server
	api       *httptest.Server
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	telemetry *authflow.Telemetry
	registry  *Registry
	server    *httptest.Server
}

type envOptions struct {
	limiter    *rate.Config
	maxClients int
}

func newEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	backend, err := fakeapi.New(fakeapi.Config{
		Users: []fakeapi.SeedUser{
			{Name: "Root", Email: adminEmail, Password: adminPassword, Roles: []string{"admin"}},
			{Name: "Alice", Email: userEmail, Password: userPassword},
		},
	})
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	apiSrv := httptest.NewServer(backend)
	t.Cleanup(apiSrv.Close)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := authflow.DefaultConfig()
	cfg.API.BaseURL = apiSrv.URL
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.Enabled = true

	tel := authflow.NewTelemetry(cfg.Audit, cfg.Metrics, nil)
	t.Cleanup(tel.Close)

	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	registry := NewRegistry(NewFactory(FactoryConfig{
		Config:    cfg,
		Redis:     rdb,
		Telemetry: tel,
		Logger:    log,
	}), RegistryConfig{IdleTTL: time.Minute, MaxClients: opts.maxClients}, log)
	t.Cleanup(registry.Close)

	deps := Deps{Registry: registry, Telemetry: tel, Logger: log}
	if opts.limiter != nil {
		deps.Limiter = rate.New(rdb, *opts.limiter)
	}
	srv, err := NewServer(Config{Routes: cfg.Routes}, deps)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	front := httptest.NewServer(srv)
	t.Cleanup(front.Close)

	return &testEnv{
		backend:   backend,
		api:       apiSrv,
		mr:        mr,
		rdb:       rdb,
		telemetry: tel,
		registry:  registry,
		server:    front,
	}
}

// browser returns a client that keeps cookies and does not follow redirects.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type testView struct {
	State     string `json:"state"`
	Tab       string `json:"tab"`
	ModalOpen bool   `json:"modalOpen"`
	Loading   bool   `json:"loading"`
	Notice    *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"notice"`
	Session struct {
		Status          string `json:"status"`
		IsAuthenticated bool   `json:"isAuthenticated"`
		IsAdmin         bool   `json:"isAdmin"`
		User            *struct {
			Email string   `json:"email"`
			Roles []string `json:"roles"`
		} `json:"user"`
	} `json:"session"`
	PendingEmail  string `json:"pendingEmail"`
	HasResetToken bool   `json:"hasResetToken"`
	Redirect      string `json:"redirect"`
	Error         string `json:"error"`
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, testView) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var v testView
	if resp.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(resp.Body).Decode(&v)
	}
	return resp, v
}

func (e *testEnv) login(t *testing.T, c *http.Client, email, password string) testView {
	t.Helper()
	resp, v := e.do(t, c, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK || !v.Session.IsAuthenticated {
		t.Fatalf("login failed: status=%d view=%+v", resp.StatusCode, v)
	}
	return v
}
