package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UserID accepts both JSON numbers and strings.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string {
	return string(id)
}

// User is the identity record returned by the backend. A legacy single
// "role" field is folded into Roles by Normalize.
type User struct {
	ID    UserID   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles"`
}

// Normalize lowercases roles, merges Role into Roles and drops duplicates.
func (u User) Normalize() User {
	seen := make(map[string]struct{}, len(u.Roles)+1)
	roles := make([]string, 0, len(u.Roles)+1)
	add := func(r string) {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	for _, r := range u.Roles {
		add(r)
	}
	add(u.Role)
	u.Roles = roles
	u.Role = ""
	return u
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MessageResponse is returned by endpoints that only report a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is returned by verify-otp.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
	Message      string `json:"message"`
}

// LoginResponse is returned by login. Success may be false with a 2xx
// status; callers treat that as a failed login.
type LoginResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
	Message      string `json:"message"`
}

// ResetResponse is returned by reset-password.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ValidateResponse is returned by validate-token.
type ValidateResponse struct {
	IsValid bool  `json:"isValid"`
	User    *User `json:"user"`
}

// Endpoints holds the path of every backend operation relative to the base URL.
type Endpoints struct {
	Register       string
	VerifyOTP      string
	ResendOTP      string
	Login          string
	Logout         string
	ForgotPassword string
	ResetPassword  string
	ValidateToken  string
}

// DefaultEndpoints returns the backend's standard route layout.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Register:       "/auth/register",
		VerifyOTP:      "/auth/verify-otp",
		ResendOTP:      "/auth/resend-otp",
		Login:          "/auth/login",
		Logout:         "/auth/logout",
		ForgotPassword: "/auth/forgot-password",
		ResetPassword:  "/auth/reset-password",
		ValidateToken:  "/auth/validate-token",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Endpoints{
		Register:       pick(e.Register, d.Register),
		VerifyOTP:      pick(e.VerifyOTP, d.VerifyOTP),
		ResendOTP:      pick(e.ResendOTP, d.ResendOTP),
		Login:          pick(e.Login, d.Login),
		Logout:         pick(e.Logout, d.Logout),
		ForgotPassword: pick(e.ForgotPassword, d.ForgotPassword),
		ResetPassword:  pick(e.ResetPassword, d.ResetPassword),
		ValidateToken:  pick(e.ValidateToken, d.ValidateToken),
	}
}
