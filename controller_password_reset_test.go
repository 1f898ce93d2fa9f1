package authflow

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/MrEthical07/authflow/internal/fakeapi"
)

func TestForgotPasswordThenBackToLogin(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	if err := c.ShowForgotPassword(ctx); err != nil {
		t.Fatalf("ShowForgotPassword: %v", err)
	}
	if c.State() != StateForgotPasswordForm {
		t.Fatalf("expected forgot_password_form, got %s", c.State())
	}
	if err := c.ForgotPassword(ctx, "bad"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := c.ForgotPassword(ctx, testUserEmail); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if c.State() != StateForgotPasswordRequested {
		t.Fatalf("expected forgot_password_requested, got %s", c.State())
	}
	if backend.ResetTokenFor(testUserEmail) == "" {
		t.Fatal("backend must have issued a reset token")
	}

	c.BackToLogin(ctx)
	v := c.View()
	if v.State != StateInitial || v.HasResetToken || v.Tab != TabLogin || v.Notice != nil {
		t.Fatalf("unexpected view after back-to-login %+v", v)
	}
}

func TestForgotPasswordRemoteFailureKeepsForm(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	_ = c.ShowForgotPassword(ctx)
	backend.FailNext("/auth/forgot-password", 503, "Mail service unavailable")
	if err := c.ForgotPassword(ctx, testUserEmail); err == nil {
		t.Fatal("expected failure")
	}
	if c.State() != StateForgotPasswordForm {
		t.Fatalf("failure must keep the form, got %s", c.State())
	}
	if n := c.Notice(); n == nil || n.Message != "Mail service unavailable" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestResetPasswordFullCycle(t *testing.T) {
	backend, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	_ = c.ShowForgotPassword(ctx)
	if err := c.ForgotPassword(ctx, testUserEmail); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := backend.ResetTokenFor(testUserEmail)

	if err := c.EnterResetRoute(ctx, url.Values{"token": {token}}); err != nil {
		t.Fatalf("EnterResetRoute: %v", err)
	}
	v := c.View()
	if v.State != StateResetPasswordForm || !v.HasResetToken || !v.ModalOpen {
		t.Fatalf("unexpected view %+v", v)
	}

	if err := c.ResetPassword(ctx, "brand-new-pass", "brand-new-pasS"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if backend.Calls("/auth/reset-password") != 0 {
		t.Fatal("mismatch must not reach the backend")
	}
	if err := c.ResetPassword(ctx, "brand-new-pass", "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	v = c.View()
	if v.State != StateInitial || v.HasResetToken || v.ModalOpen {
		t.Fatalf("reset must return to initial, drop the token and close the modal, got %+v", v)
	}
	if v.Notice == nil || v.Notice.Kind != NoticeInfo {
		t.Fatalf("expected success notice, got %+v", v.Notice)
	}

	if err := c.Login(ctx, testUserEmail, testUserPassword); !errors.Is(err, ErrLoginRejected) {
		t.Fatalf("old password must be rejected, got %v", err)
	}
	mustLogin(t, c, testUserEmail, "brand-new-pass")
}

func TestResetPasswordRejectedTokenStaysOnForm(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	if err := c.EnterResetRoute(ctx, url.Values{"token": {"bogus"}}); err != nil {
		t.Fatalf("EnterResetRoute: %v", err)
	}
	err := c.ResetPassword(ctx, "brand-new-pass", "brand-new-pass")
	if !errors.Is(err, ErrResetRejected) {
		t.Fatalf("expected ErrResetRejected, got %v", err)
	}
	v := c.View()
	if v.State != StateResetPasswordForm || !v.HasResetToken {
		t.Fatalf("rejection must keep the form, got %+v", v)
	}
	if v.Notice == nil || v.Notice.Message != "Invalid or expired reset token" {
		t.Fatalf("unexpected notice %+v", v.Notice)
	}
}

func TestResetRouteWithoutTokenFallsBackToInitial(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	_ = c.ShowForgotPassword(ctx)
	err := c.EnterResetRoute(ctx, url.Values{})
	if !errors.Is(err, ErrResetTokenMissing) {
		t.Fatalf("expected ErrResetTokenMissing, got %v", err)
	}
	v := c.View()
	if v.State != StateInitial || v.HasResetToken {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.Notice == nil || !v.Notice.IsError() {
		t.Fatalf("expected error notice, got %+v", v.Notice)
	}
}

func TestLeaveResetRouteDropsToken(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL)
	ctx := context.Background()

	_ = c.EnterResetRoute(ctx, url.Values{"token": {"abc"}})
	c.LeaveResetRoute(ctx)
	v := c.View()
	if v.State != StateInitial || v.HasResetToken {
		t.Fatalf("unexpected view %+v", v)
	}
	if err := c.ResetPassword(ctx, "brand-new-pass", "brand-new-pass"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
