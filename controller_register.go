package authflow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/tokenstore"
)

// RegisterRequest carries the raw registration form.
type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register submits the registration form. On success the flow moves to
// StateOTPSent and the email is kept for verification.
func (c *Controller) Register(ctx context.Context, req RegisterRequest) error {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	err := c.begin(opRegister, func() error {
		if !c.canFireLocked(triggerRegistered) {
			return ErrInvalidTransition
		}
		if err := required("name", name, "Name is required"); err != nil {
			return err
		}
		if err := validateEmail(email); err != nil {
			return err
		}
		if err := required("password", req.Password, "Password is required"); err != nil {
			return err
		}
		if err := checkConfirmation(req.Password, req.ConfirmPassword); err != nil {
			return err
		}
		return checkPassword(c.cfg.Password, req.Password, name, email)
	})
	if err != nil {
		return err
	}
	defer c.end(opRegister)

	var resp *api.MessageResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: req.Password})
		return err
	})
	if err != nil {
		c.failed(ctx, opRegister, err, "Registration failed. Please try again.", AuditEvent{})
		return err
	}

	c.mu.Lock()
	from := c.state
	to, moved := c.fireLocked(triggerRegistered)
	if moved {
		c.pendingEmail = email
		c.otp.Reset()
		c.lastOTPSent = c.now()
		c.notice = InfoNotice(messageOr(messageText(resp), "A verification code has been sent to "+email))
	}
	c.mu.Unlock()

	c.log.Info("registration accepted", maskEmail(email))
	c.record(ctx, opRegister, nil, AuditEvent{FromState: from.String(), ToState: to.String()})
	return nil
}

// VerifyOTP submits the code for the pending email. An empty code uses the
// digits entered through SetOTPDigit or PasteOTP.
func (c *Controller) VerifyOTP(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	var email string

	err := c.begin(opVerifyOTP, func() error {
		if !c.canFireLocked(triggerOTPVerified) || c.pendingEmail == "" {
			return ErrInvalidTransition
		}
		if code == "" {
			code = c.otp.Code()
		}
		email = c.pendingEmail
		return validateOTP(code, c.cfg.OTP.Digits)
	})
	if err != nil {
		return err
	}
	defer c.end(opVerifyOTP)

	var resp *api.AuthResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.VerifyOTP(ctx, email, code)
		return err
	})
	if err == nil && (resp == nil || resp.Token == "" || resp.User == nil) {
		msg := ""
		if resp != nil {
			msg = resp.Message
		}
		err = reject(ErrVerificationRejected, msg)
	}
	if err != nil {
		c.failed(ctx, opVerifyOTP, err, "Invalid or expired code. Please try again.", AuditEvent{})
		return err
	}

	user := userFromAPI(resp.User)
	tokens := tokenstore.Tokens{Access: resp.Token, Refresh: resp.RefreshToken}
	c.persist(ctx, tokens)

	c.mu.Lock()
	from := c.state
	c.session = Session{Status: SessionAuthenticated, Token: tokens.Access, User: user}
	c.fireLocked(triggerOTPVerified)
	c.pendingEmail = ""
	c.otp.Reset()
	c.tab = TabLogin
	c.modalOpen = false
	c.notice = nil
	to := c.state
	c.mu.Unlock()

	c.log.Info("email verified", zap.String("user_id", user.ID), maskEmail(email))
	c.record(ctx, opVerifyOTP, nil, AuditEvent{UserID: user.ID, FromState: from.String(), ToState: to.String()})
	return nil
}

// ResendOTP asks the backend to send a fresh code. Requests inside the
// cooldown window fail locally with ErrResendCooldown.
func (c *Controller) ResendOTP(ctx context.Context) error {
	var email string

	err := c.begin(opResendOTP, func() error {
		if c.state != StateOTPSent || c.pendingEmail == "" {
			return ErrInvalidTransition
		}
		if cd := c.cfg.OTP.ResendCooldown; cd > 0 && !c.lastOTPSent.IsZero() {
			if wait := cd - c.now().Sub(c.lastOTPSent); wait > 0 {
				secs := int(math.Ceil(wait.Seconds()))
				c.notice = ErrorNotice(fmt.Sprintf("Please wait %d seconds before requesting a new code", secs))
				c.telemetry.inc(MetricOTPResendThrottled)
				return ErrResendCooldown
			}
		}
		email = c.pendingEmail
		return nil
	})
	if err != nil {
		return err
	}
	defer c.end(opResendOTP)

	var resp *api.MessageResponse
	err = c.remote(func() (err error) {
		resp, err = c.client.ResendOTP(ctx, email)
		return err
	})
	if err != nil {
		c.failed(ctx, opResendOTP, err, "Could not resend the code. Please try again.", AuditEvent{})
		return err
	}

	c.mu.Lock()
	c.otp.ClearDigits()
	c.lastOTPSent = c.now()
	c.notice = InfoNotice(messageOr(messageText(resp), "A new code has been sent to "+email))
	state := c.state
	c.mu.Unlock()

	c.log.Info("verification code resent", maskEmail(email))
	c.record(ctx, opResendOTP, nil, AuditEvent{FromState: state.String(), ToState: state.String()})
	return nil
}
