package authflow

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/jwt"
	"github.com/MrEthical07/authflow/tokenstore"
)

// Bootstrap restores the session from the token store. A stored token is
// validated once; any failure clears the store and leaves the session
// anonymous without surfacing a notice. Bootstrap is not retried.
func (c *Controller) Bootstrap(ctx context.Context) error {
	if err := c.begin(opBootstrap, nil); err != nil {
		return err
	}
	defer c.end(opBootstrap)

	tokens, err := c.store.Get(ctx)
	if err != nil {
		c.log.Warn("token store read failed", zap.Error(err))
	}
	if tokens.Access == "" {
		c.mu.Lock()
		if c.session.Status == SessionUnknown {
			c.session = Session{Status: SessionAnonymous}
		}
		c.mu.Unlock()
		return nil
	}

	if !c.cfg.Session.SkipLocalExpiryCheck {
		claims, err := jwt.Inspect(tokens.Access)
		if err == nil && claims.Expired(c.now(), c.cfg.Session.ExpiryLeeway) {
			c.invalidate(ctx, "token expired")
			return nil
		}
	}

	var resp *api.ValidateResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.ValidateToken(ctx, tokens.Access)
		return err
	})
	if err == nil && (resp == nil || !resp.IsValid || resp.User == nil) {
		err = ErrNotAuthenticated
	}
	if err != nil {
		c.log.Info("stored token rejected", zap.Error(err))
		c.invalidate(ctx, "validation failed")
		c.record(ctx, opBootstrap, err, AuditEvent{})
		return nil
	}

	user := userFromAPI(resp.User)
	c.mu.Lock()
	c.session = Session{Status: SessionAuthenticated, Token: tokens.Access, User: user}
	c.mu.Unlock()

	c.log.Info("session restored", zap.String("user_id", user.ID))
	c.record(ctx, opBootstrap, nil, AuditEvent{UserID: user.ID})
	return nil
}

// invalidate drops the session and every stored token without a notice.
func (c *Controller) invalidate(ctx context.Context, reason string) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("token store clear failed", zap.Error(err))
	}

	c.mu.Lock()
	userID := ""
	if c.session.User != nil {
		userID = c.session.User.ID
	}
	c.session = Session{Status: SessionAnonymous}
	c.mu.Unlock()

	c.telemetry.inc(MetricSessionInvalidated)
	c.log.Info("session invalidated", zap.String("reason", reason))
	c.telemetry.emit(ctx, AuditEvent{
		EventType: auditEventInvalidated,
		ClientID:  c.clientID,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
}

// HandleOAuthCallback completes a third-party sign-in. The query carries
// access_token and refresh_token, or a single token parameter. The token
// is validated before anything is persisted.
func (c *Controller) HandleOAuthCallback(ctx context.Context, query url.Values) error {
	access := firstNonEmpty(query.Get("access_token"), query.Get("accessToken"), query.Get("token"))
	refresh := firstNonEmpty(query.Get("refresh_token"), query.Get("refreshToken"))

	err := c.begin(opOAuthCallback, func() error {
		if access == "" {
			c.notice = ErrorNotice(firstNonEmpty(query.Get("error_description"), query.Get("error"), "Sign-in failed. Please try again."))
			c.modalOpen = true
			return ErrOAuthTokenMissing
		}
		return nil
	})
	if errors.Is(err, ErrOAuthTokenMissing) {
		c.log.Warn("oauth callback without token", zap.String("error", query.Get("error")))
		c.record(ctx, opOAuthCallback, err, AuditEvent{})
		return err
	}
	if err != nil {
		return err
	}
	defer c.end(opOAuthCallback)

	var resp *api.ValidateResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.ValidateToken(ctx, access)
		return err
	})
	if err == nil && (resp == nil || !resp.IsValid || resp.User == nil) {
		err = reject(ErrNotAuthenticated, "")
	}
	if err != nil {
		c.mu.Lock()
		c.modalOpen = true
		c.mu.Unlock()
		c.failed(ctx, opOAuthCallback, err, "Sign-in failed. Please try again.", AuditEvent{})
		return err
	}

	user := userFromAPI(resp.User)
	c.persist(ctx, tokenstore.Tokens{Access: access, Refresh: refresh})

	c.mu.Lock()
	from := c.state
	c.session = Session{Status: SessionAuthenticated, Token: access, User: user}
	c.fireLocked(triggerOAuthCompleted)
	c.tab = TabLogin
	c.modalOpen = false
	c.pendingEmail = ""
	c.resetToken = ""
	c.otp.Reset()
	c.mu.Unlock()

	c.log.Info("oauth sign-in completed", zap.String("user_id", user.ID))
	c.record(ctx, opOAuthCallback, nil, AuditEvent{UserID: user.ID, FromState: from.String(), ToState: StateInitial.String()})
	return nil
}

// Fetch performs an authenticated backend call with the session token. A
// 401 answer invalidates the session silently and the error is returned.
func (c *Controller) Fetch(ctx context.Context, method, path string, in, out any) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	err := c.remote(func() error {
		return c.client.Do(ctx, method, path, s.Token, in, out)
	})
	if errors.Is(err, api.ErrUnauthorized) {
		c.mu.Lock()
		current := c.session.Token == s.Token
		c.mu.Unlock()
		if current {
			c.invalidate(ctx, "unauthorized response")
		}
	}
	return err
}

/*
====================================
ROLE DERIVATION / ROUTE GUARD
====================================
*/

func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.IsAuthenticated()
}

// User returns a copy of the authenticated user, or nil.
func (c *Controller) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.IsAuthenticated() {
		return nil
	}
	return c.session.User.clone()
}

func (c *Controller) IsAdmin() bool {
	return c.User().IsAdmin()
}

func (c *Controller) IsSuperAdmin() bool {
	return c.User().IsSuperAdmin()
}

// HasAnyRole reports whether the authenticated user holds any of roles.
func (c *Controller) HasAnyRole(roles ...string) bool {
	return c.User().HasAnyRole(roles...)
}

// Authorize decides whether path may be rendered. Denied navigation
// returns the public home as redirect target.
func (c *Controller) Authorize(path string) (bool, string) {
	rule, ok := matchRule(c.cfg.Routes.Protected, path)
	if !ok {
		return true, ""
	}
	if c.User().HasAnyRole(rule.AnyOf...) {
		return true, ""
	}
	return false, c.cfg.Routes.PublicHome
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
