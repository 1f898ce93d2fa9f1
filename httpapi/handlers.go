package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/middleware"
)

type viewResponse struct {
	authflow.View
	Redirect string `json:"redirect,omitempty"`
	Error    string `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// respond writes the controller view. Business failures are already in
// the view's notice, so they keep 200; only flow conflicts change status.
func (s *Server) respond(w http.ResponseWriter, c *authflow.Controller, err error) {
	resp := viewResponse{View: c.View()}
	status := http.StatusOK
	if err != nil {
		resp.Error = errorCode(err)
		if errors.Is(err, authflow.ErrOperationInFlight) || errors.Is(err, authflow.ErrInvalidTransition) {
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, resp)
}

func errorCode(err error) string {
	var verr *authflow.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, authflow.ErrOperationInFlight):
		return "in_flight"
	case errors.Is(err, authflow.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, authflow.ErrResendCooldown):
		return "cooldown"
	case errors.Is(err, authflow.ErrResetTokenMissing), errors.Is(err, authflow.ErrOAuthTokenMissing):
		return "token_missing"
	case errors.Is(err, authflow.ErrNotAuthenticated), errors.Is(err, api.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, api.ErrUnavailable):
		return "unavailable"
	default:
		return "rejected"
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	if err := decode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Modal and navigation
// ---------------------------------------------------------------------------

func (s *Server) view(w http.ResponseWriter, _ *http.Request, c *authflow.Controller) {
	s.respond(w, c, nil)
}

func (s *Server) openModal(w http.ResponseWriter, _ *http.Request, c *authflow.Controller) {
	c.OpenAuthModal()
	s.respond(w, c, nil)
}

func (s *Server) closeModal(w http.ResponseWriter, _ *http.Request, c *authflow.Controller) {
	c.CloseAuthModal()
	s.respond(w, c, nil)
}

func (s *Server) switchTab(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Tab string `json:"tab"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	tab, ok := authflow.ParseTab(body.Tab)
	if !ok {
		badRequest(w)
		return
	}
	s.respond(w, c, c.SwitchTab(tab))
}

func (s *Server) showForgotPassword(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	s.respond(w, c, c.ShowForgotPassword(r.Context()))
}

func (s *Server) backToLogin(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	c.BackToLogin(r.Context())
	s.respond(w, c, nil)
}

// ---------------------------------------------------------------------------
// Registration and OTP
// ---------------------------------------------------------------------------

func (s *Server) register(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	err := c.Register(r.Context(), authflow.RegisterRequest{
		Name:            body.Name,
		Email:           body.Email,
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPassword,
	})
	s.respond(w, c, err)
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		OTP string `json:"otp"`
	}
	if err := decodeOptional(r, &body); err != nil {
		badRequest(w)
		return
	}
	s.respond(w, c, c.VerifyOTP(r.Context(), body.OTP))
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	s.respond(w, c, c.ResendOTP(r.Context()))
}

func (s *Server) otpDigit(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Index int     `json:"index"`
		Value string  `json:"value"`
		Paste *string `json:"paste"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	if body.Paste != nil {
		c.PasteOTP(*body.Paste)
	} else if !c.SetOTPDigit(body.Index, body.Value) {
		badRequest(w)
		return
	}
	s.respond(w, c, nil)
}

func (s *Server) otpBackspace(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Index int `json:"index"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	c.BackspaceOTP(body.Index)
	s.respond(w, c, nil)
}

// ---------------------------------------------------------------------------
// Login, logout and password reset
// ---------------------------------------------------------------------------

func (s *Server) login(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	s.respond(w, c, c.Login(r.Context(), body.Email, body.Password))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	home := c.Logout(r.Context())
	writeJSON(w, http.StatusOK, viewResponse{View: c.View(), Redirect: home})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	s.respond(w, c, c.ForgotPassword(r.Context(), body.Email))
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	var body struct {
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w)
		return
	}
	s.respond(w, c, c.ResetPassword(r.Context(), body.NewPassword, body.ConfirmPassword))
}

// ---------------------------------------------------------------------------
// Link routes
// ---------------------------------------------------------------------------

// resetRoute is the target of the emailed reset link. A missing token still
// answers 200: the view carries the error notice.
func (s *Server) resetRoute(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	err := c.EnterResetRoute(r.Context(), r.URL.Query())
	if errors.Is(err, authflow.ErrResetTokenMissing) {
		err = nil
	}
	s.respond(w, c, err)
}

// oauthCallback always lands on the public home; a failed sign-in is
// visible in the next view.
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request, c *authflow.Controller) {
	if err := c.HandleOAuthCallback(r.Context(), r.URL.Query()); err != nil {
		s.log.Info("oauth callback failed", zap.Error(err))
	}
	http.Redirect(w, r, s.cfg.Routes.PublicHome, http.StatusFound)
}

// ---------------------------------------------------------------------------
// Guarded routes
// ---------------------------------------------------------------------------

func controllerFrom(r *http.Request) (*authflow.Controller, bool) {
	a, ok := middleware.AuthorizerFromContext(r.Context())
	if !ok {
		return nil, false
	}
	c, ok := a.(*authflow.Controller)
	return c, ok
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	c, ok := controllerFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	var user api.User
	if err := c.Fetch(r.Context(), http.MethodGet, "/api/me", nil, &user); err != nil {
		s.fetchFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Normalize())
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	c, ok := controllerFrom(r)
	if !ok {
		http.Redirect(w, r, s.cfg.Routes.PublicHome, http.StatusFound)
		return
	}
	var stats map[string]any
	if err := c.Fetch(r.Context(), http.MethodGet, "/api/admin/stats", nil, &stats); err != nil {
		s.fetchFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  c.User(),
		"stats": stats,
	})
}

func (s *Server) fetchFailed(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	status := http.StatusBadGateway
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		status = apiErr.StatusCode
	}
	if errors.Is(err, authflow.ErrNotAuthenticated) {
		status = http.StatusUnauthorized
	}
	s.log.Warn("backend fetch failed", zap.Error(err))
	writeJSON(w, status, errorBody{Error: errorCode(err)})
}
