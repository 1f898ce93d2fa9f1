package authflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/tokenstore"
)

// Login authenticates with email and password. A failed login leaves the
// session untouched.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	err := c.begin(opLogin, func() error {
		if !c.canFireLocked(triggerLoggedIn) {
			return ErrInvalidTransition
		}
		if err := validateEmail(email); err != nil {
			return err
		}
		return required("password", password, "Password is required")
	})
	if err != nil {
		return err
	}
	defer c.end(opLogin)

	var resp *api.LoginResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.Login(ctx, email, password)
		return err
	})
	if err == nil && (resp == nil || !resp.Success || resp.Token == "" || resp.User == nil) {
		msg := ""
		if resp != nil {
			msg = resp.Message
		}
		err = reject(ErrLoginRejected, msg)
	}
	if err != nil {
		c.failed(ctx, opLogin, err, "Login failed. Please check your credentials.", AuditEvent{})
		return err
	}

	user := userFromAPI(resp.User)
	tokens := tokenstore.Tokens{Access: resp.Token, Refresh: resp.RefreshToken}
	c.persist(ctx, tokens)

	c.mu.Lock()
	from := c.state
	c.session = Session{Status: SessionAuthenticated, Token: tokens.Access, User: user}
	c.fireLocked(triggerLoggedIn)
	c.modalOpen = false
	c.otp.Reset()
	to := c.state
	c.mu.Unlock()

	c.log.Info("login succeeded", zap.String("user_id", user.ID), maskEmail(email))
	c.record(ctx, opLogin, nil, AuditEvent{UserID: user.ID, FromState: from.String(), ToState: to.String()})
	return nil
}

// Logout ends the session and returns the path to navigate to. The remote
// call is best effort: local state is cleared even when it fails.
func (c *Controller) Logout(ctx context.Context) string {
	home := c.cfg.Routes.PublicHome

	// cleared before the overlap check; a rejected second call still ends
	// the session
	c.mu.Lock()
	token := c.session.Token
	userID := ""
	if c.session.User != nil {
		userID = c.session.User.ID
	}
	c.session = Session{Status: SessionAnonymous}
	c.mu.Unlock()

	if err := c.begin(opLogout, nil); err != nil {
		return home
	}
	defer c.end(opLogout)

	if token == "" {
		stored, err := c.store.Get(ctx)
		if err != nil {
			c.log.Warn("token lookup failed during logout", zap.Error(err))
		}
		token = stored.Access
	}

	ev := AuditEvent{UserID: userID}
	if token != "" {
		err := c.remote(func() error {
			_, err := c.client.Logout(ctx, token)
			return err
		})
		if err != nil {
			c.telemetry.inc(MetricLogoutRemoteFailure)
			c.log.Warn("remote logout failed", zap.Error(err))
			ev.Metadata = map[string]string{"remote_error": err.Error()}
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("token store clear failed", zap.Error(err))
	}

	c.mu.Lock()
	from := c.state
	c.session = Session{Status: SessionAnonymous}
	c.fireLocked(triggerLoggedOut)
	c.tab = TabLogin
	c.modalOpen = false
	c.notice = nil
	c.pendingEmail = ""
	c.resetToken = ""
	c.otp.Reset()
	c.mu.Unlock()

	ev.FromState = from.String()
	ev.ToState = StateInitial.String()
	c.log.Info("logged out", zap.String("user_id", userID))
	c.record(ctx, opLogout, nil, ev)
	return home
}
