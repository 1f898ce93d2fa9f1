package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authflow/internal/password"
	"github.com/MrEthical07/authflow/internal/rate"
)

// SeedUser is a verified account present from the start.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Roles    []string
}

type Config struct {
	OTPDigits int
	// FixedOTP, when set, is sent instead of a random code.
	FixedOTP string
	// IssueToken, when set, replaces JWT issuance.
	IssueToken func(userID int, email string) string
	Secret     []byte
	AccessTTL  time.Duration
	ResetTTL   time.Duration
	Users      []SeedUser

	// Redis enables failed-login throttling.
	Redis            redis.UniversalClient
	MaxLoginFailures int
	LockoutWindow    time.Duration

	Now func() time.Time
}

type account struct {
	id       int
	name     string
	email    string
	hash     string
	roles    []string
	verified bool
	otp      string
}

type issued struct {
	email   string
	expires time.Time
}

// resetGrant is keyed by the token hash. mailed is the outbox copy of the
// link token that tests read back.
type resetGrant struct {
	email   string
	mailed  string
	expires time.Time
}

type failure struct {
	status  int
	message string
}

// Server implements the backend routes on an http.ServeMux.
type Server struct {
	cfg     Config
	hasher  *password.Argon2
	limiter *rate.Limiter
	mux     *http.ServeMux

	mu       sync.Mutex
	nextID   int
	accounts map[string]*account
	tokens   map[string]issued
	resets   map[string]resetGrant
	failures map[string][]failure
	blocks   map[string]chan struct{}
	calls    map[string]int
}

func New(cfg Config) (*Server, error) {
	if cfg.OTPDigits == 0 {
		cfg.OTPDigits = 6
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte(uuid.NewString())
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 15 * time.Minute
	}
	if cfg.MaxLoginFailures <= 0 {
		cfg.MaxLoginFailures = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	hasher, err := password.NewArgon2(password.LightConfig())
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		hasher:   hasher,
		mux:      http.NewServeMux(),
		nextID:   1,
		accounts: make(map[string]*account),
		tokens:   make(map[string]issued),
		resets:   make(map[string]resetGrant),
		failures: make(map[string][]failure),
		blocks:   make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
	if cfg.Redis != nil {
		s.limiter = rate.New(cfg.Redis, rate.Config{
			Prefix:      "fakeapi:login",
			MaxAttempts: cfg.MaxLoginFailures,
			Window:      cfg.LockoutWindow,
		})
	}

	for _, u := range cfg.Users {
		if err := s.seed(u); err != nil {
			return nil, err
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) seed(u SeedUser) error {
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return err
	}
	email := strings.ToLower(u.Email)
	roles := slices.Clone(u.Roles)
	if len(roles) == 0 {
		roles = []string{"user"}
	}
	s.accounts[email] = &account{
		id:       s.nextID,
		name:     u.Name,
		email:    email,
		hash:     hash,
		roles:    roles,
		verified: true,
	}
	s.nextID++
	return nil
}

func (s *Server) routes() {
	s.handle("POST /auth/register", s.register)
	s.handle("POST /auth/verify-otp", s.verifyOTP)
	s.handle("POST /auth/resend-otp", s.resendOTP)
	s.handle("POST /auth/login", s.login)
	s.handle("POST /auth/logout", s.logout)
	s.handle("POST /auth/forgot-password", s.forgotPassword)
	s.handle("POST /auth/reset-password", s.resetPassword)
	s.handle("GET /auth/validate-token", s.validateToken)
	s.handle("GET /api/me", s.me)
	s.handle("GET /api/admin/stats", s.adminStats)
}

// handle wraps h with call counting, blocking and failure injection.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	_, path, _ := strings.Cut(pattern, " ")
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[path]++
		gate := s.blocks[path]
		var injected *failure
		if q := s.failures[path]; len(q) > 0 {
			injected = &q[0]
			s.failures[path] = q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if injected != nil {
			writeJSON(w, injected.status, map[string]any{"message": injected.message})
			return
		}
		h(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

/*
====================================
TEST HOOKS
====================================
*/

// OTPFor returns the code last sent to email.
func (s *Server) OTPFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[strings.ToLower(email)]; ok {
		return a.otp
	}
	return ""
}

// ResetTokenFor returns the newest live reset token issued for email.
func (s *Server) ResetTokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	var (
		token  string
		newest time.Time
	)
	for _, g := range s.resets {
		if g.email == email && g.expires.After(newest) {
			token, newest = g.mailed, g.expires
		}
	}
	return token
}

// SetRoles replaces the roles of an existing account.
func (s *Server) SetRoles(email string, roles ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(email)]
	if ok {
		a.roles = slices.Clone(roles)
	}
	return ok
}

// RevokeAll invalidates every token issued to email.
func (s *Server) RevokeAll(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for t, is := range s.tokens {
		if is.email == email {
			delete(s.tokens, t)
		}
	}
}

// FailNext makes the next call to path answer status with message.
func (s *Server) FailNext(path string, status int, message string) {
	s.mu.Lock()
	s.failures[path] = append(s.failures[path], failure{status: status, message: message})
	s.mu.Unlock()
}

// Block parks every call to path until the returned release is called.
func (s *Server) Block(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blocks[path] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.blocks, path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

/*
====================================
TOKENS
====================================
*/

func (s *Server) issueLocked(a *account) (string, error) {
	now := s.cfg.Now()
	var token string
	if s.cfg.IssueToken != nil {
		token = s.cfg.IssueToken(a.id, a.email)
	} else {
		claims := gojwt.MapClaims{
			"sub":   a.email,
			"uid":   a.id,
			"roles": a.roles,
			"iat":   now.Unix(),
			"exp":   now.Add(s.cfg.AccessTTL).Unix(),
			"jti":   uuid.NewString(),
		}
		signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
		if err != nil {
			return "", err
		}
		token = signed
	}
	s.tokens[token] = issued{email: a.email, expires: now.Add(s.cfg.AccessTTL)}
	return token, nil
}

var errInvalidToken = errors.New("invalid token")

// authenticate resolves the bearer token of r to its account.
func (s *Server) authenticate(r *http.Request) (*account, string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil, "", errInvalidToken
	}

	if s.cfg.IssueToken == nil {
		_, err := gojwt.Parse(token, func(*gojwt.Token) (any, error) {
			return s.cfg.Secret, nil
		}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}), gojwt.WithTimeFunc(s.cfg.Now))
		if err != nil {
			return nil, "", errInvalidToken
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	is, ok := s.tokens[token]
	if !ok || !s.cfg.Now().Before(is.expires) {
		return nil, "", errInvalidToken
	}
	a, ok := s.accounts[is.email]
	if !ok {
		return nil, "", errInvalidToken
	}
	return a, token, nil
}

/*
====================================
WIRE HELPERS
====================================
*/

type userJSON struct {
	ID    int      `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles"`
}

func (a *account) json() userJSON {
	u := userJSON{ID: a.id, Email: a.email, Name: a.name, Roles: slices.Clone(a.roles)}
	if len(a.roles) > 0 {
		u.Role = a.roles[0]
	}
	return u
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}
