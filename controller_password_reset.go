package authflow

import (
	"context"
	"net/url"
	"strings"

	"github.com/MrEthical07/authflow/api"
)

const resetLinkInvalid = "This password reset link is invalid or has expired."

// ForgotPassword requests a reset link for email.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	err := c.begin(opForgotPassword, func() error {
		if !c.canFireLocked(triggerResetRequested) {
			return ErrInvalidTransition
		}
		return validateEmail(email)
	})
	if err != nil {
		return err
	}
	defer c.end(opForgotPassword)

	var resp *api.MessageResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.ForgotPassword(ctx, email)
		return err
	})
	if err != nil {
		c.failed(ctx, opForgotPassword, err, "Could not send the reset link. Please try again.", AuditEvent{})
		return err
	}

	c.mu.Lock()
	from := c.state
	to, _ := c.fireLocked(triggerResetRequested)
	c.notice = InfoNotice(messageOr(messageText(resp), "If an account exists for "+email+", a reset link is on its way."))
	c.mu.Unlock()

	c.log.Info("password reset requested", maskEmail(email))
	c.record(ctx, opForgotPassword, nil, AuditEvent{FromState: from.String(), ToState: to.String()})
	return nil
}

// EnterResetRoute is called when the reset-password route is visited.
// A token in the query moves the flow to StateResetPasswordForm. Without
// one the flow returns to StateInitial with an error notice and
// ErrResetTokenMissing is returned.
func (c *Controller) EnterResetRoute(ctx context.Context, query url.Values) error {
	token := strings.TrimSpace(query.Get(c.cfg.Routes.ResetTokenParam))

	c.mu.Lock()
	from := c.state
	c.modalOpen = true
	c.pendingEmail = ""
	c.otp.Reset()
	if token == "" {
		c.fireLocked(triggerBackToLogin)
		c.tab = TabLogin
		c.resetToken = ""
		c.notice = ErrorNotice(resetLinkInvalid)
		c.mu.Unlock()

		c.log.Info("reset route visited without token")
		c.recordTransition(ctx, from, StateInitial, triggerBackToLogin)
		return ErrResetTokenMissing
	}
	c.fireLocked(triggerResetLink)
	c.resetToken = token
	c.notice = nil
	c.mu.Unlock()

	c.recordTransition(ctx, from, StateResetPasswordForm, triggerResetLink)
	return nil
}

// LeaveResetRoute discards the reset token when navigating away.
func (c *Controller) LeaveResetRoute(ctx context.Context) {
	c.mu.Lock()
	from := c.state
	c.resetToken = ""
	left := from == StateResetPasswordForm
	if left {
		c.fireLocked(triggerBackToLogin)
	}
	c.mu.Unlock()

	if left {
		c.recordTransition(ctx, from, StateInitial, triggerBackToLogin)
	}
}

// ResetPassword submits a new password with the token captured by
// EnterResetRoute.
func (c *Controller) ResetPassword(ctx context.Context, newPassword, confirmPassword string) error {
	var token string

	err := c.begin(opResetPassword, func() error {
		if !c.canFireLocked(triggerResetCompleted) {
			return ErrInvalidTransition
		}
		if c.resetToken == "" {
			return invalid("token", ErrResetTokenMissing, resetLinkInvalid)
		}
		if err := required("password", newPassword, "Password is required"); err != nil {
			return err
		}
		if err := checkConfirmation(newPassword, confirmPassword); err != nil {
			return err
		}
		if err := checkPassword(c.cfg.Password, newPassword); err != nil {
			return err
		}
		token = c.resetToken
		return nil
	})
	if err != nil {
		return err
	}
	defer c.end(opResetPassword)

	var resp *api.ResetResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.ResetPassword(ctx, token, newPassword)
		return err
	})
	if err == nil && (resp == nil || !resp.Success) {
		msg := ""
		if resp != nil {
			msg = resp.Message
		}
		err = reject(ErrResetRejected, msg)
	}
	if err != nil {
		c.failed(ctx, opResetPassword, err, "Password reset failed. The link may have expired.", AuditEvent{})
		return err
	}

	c.mu.Lock()
	from := c.state
	c.fireLocked(triggerResetCompleted)
	c.resetToken = ""
	c.tab = TabLogin
	c.modalOpen = false
	c.notice = InfoNotice(messageOr(resp.Message, "Your password has been reset. Please log in."))
	to := c.state
	c.mu.Unlock()

	c.log.Info("password reset completed")
	c.record(ctx, opResetPassword, nil, AuditEvent{FromState: from.String(), ToState: to.String()})
	return nil
}
