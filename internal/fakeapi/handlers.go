package fakeapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authflow/internal"
	"github.com/MrEthical07/authflow/internal/rate"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil || in.Email == "" || in.Password == "" || in.Name == "" {
		message(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	otp, err := s.newOTP()
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok && a.verified {
		message(w, http.StatusConflict, "User already exists")
		return
	}
	a, ok := s.accounts[email]
	if !ok {
		a = &account{id: s.nextID, email: email, roles: []string{"user"}}
		s.nextID++
		s.accounts[email] = a
	}
	a.name = strings.TrimSpace(in.Name)
	a.hash = hash
	a.otp = otp

	message(w, http.StatusCreated, "Registration successful. Please check your email for the verification code.")
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decode(r, &in); err != nil {
		message(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(in.Email)]
	if !ok || a.verified || a.otp == "" || a.otp != in.OTP {
		message(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	a.verified = true
	a.otp = ""

	token, err := s.issueLocked(a)
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"token":   token,
		"user":    a.json(),
	})
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decode(r, &in); err != nil {
		message(w, http.StatusBadRequest, "Invalid request")
		return
	}
	otp, err := s.newOTP()
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not send code")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(in.Email)]
	if !ok || a.verified {
		message(w, http.StatusNotFound, "No pending verification for this email")
		return
	}
	a.otp = otp
	message(w, http.StatusOK, "A new verification code has been sent")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		message(w, http.StatusBadRequest, "Invalid request")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.limiter.Check(r.Context(), email); errors.Is(err, rate.ErrRateLimited) {
		message(w, http.StatusTooManyRequests, "Too many failed attempts. Please try again later.")
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[email]
	var hash string
	var verified bool
	if ok {
		hash, verified = a.hash, a.verified
	}
	s.mu.Unlock()

	valid := false
	if ok {
		valid, _ = s.hasher.Verify(in.Password, hash)
	}
	if !valid {
		_ = s.limiter.Allow(r.Context(), email)
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}
	if !verified {
		message(w, http.StatusForbidden, "Please verify your email before logging in")
		return
	}
	_ = s.limiter.Reset(r.Context(), email)

	s.mu.Lock()
	defer s.mu.Unlock()
	token, err := s.issueLocked(a)
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    a.json(),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	_, token, err := s.authenticate(r)
	if err != nil {
		message(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	message(w, http.StatusOK, "Logged out successfully")
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decode(r, &in); err != nil || in.Email == "" {
		message(w, http.StatusBadRequest, "Email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	s.mu.Lock()
	_, ok := s.accounts[email]
	s.mu.Unlock()
	if ok {
		token, err := internal.NewResetToken()
		if err != nil {
			message(w, http.StatusInternalServerError, "Could not create reset link")
			return
		}
		s.mu.Lock()
		s.resets[internal.HashToken(token)] = resetGrant{email: email, mailed: token, expires: s.cfg.Now().Add(s.cfg.ResetTTL)}
		s.mu.Unlock()
	}
	message(w, http.StatusOK, "If an account with that email exists, a password reset link has been sent.")
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decode(r, &in); err != nil || in.Token == "" || in.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Token and new password are required"})
		return
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		message(w, http.StatusInternalServerError, "Could not reset password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := internal.HashToken(in.Token)
	g, ok := s.resets[key]
	if !ok || !s.cfg.Now().Before(g.expires) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid or expired reset token"})
		return
	}
	delete(s.resets, key)
	if a, ok := s.accounts[g.email]; ok {
		a.hash = hash
		for t, is := range s.tokens {
			if is.email == g.email {
				delete(s.tokens, t)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password has been reset successfully"})
}

func (s *Server) validateToken(w http.ResponseWriter, r *http.Request) {
	a, _, err := s.authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"isValid": false, "message": "Invalid or expired token"})
		return
	}
	s.mu.Lock()
	u := a.json()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"isValid": true, "user": u})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	a, _, err := s.authenticate(r)
	if err != nil {
		message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.mu.Lock()
	u := a.json()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	a, _, err := s.authenticate(r)
	if err != nil {
		message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !a.isAdmin() {
		message(w, http.StatusForbidden, "Admin access required")
		return
	}
	verified := 0
	for _, acc := range s.accounts {
		if acc.verified {
			verified++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":       len(s.accounts),
		"verified":       verified,
		"active_tokens":  len(s.tokens),
		"pending_resets": len(s.resets),
	})
}

func (a *account) isAdmin() bool {
	for _, r := range a.roles {
		if r == "admin" || r == "superadmin" {
			return true
		}
	}
	return false
}

func (s *Server) newOTP() (string, error) {
	if s.cfg.FixedOTP != "" {
		return s.cfg.FixedOTP, nil
	}
	return internal.NewOTP(s.cfg.OTPDigits)
}
