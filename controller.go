package authflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/authflow/api"
	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/logger"
	"github.com/MrEthical07/authflow/tokenstore"
)

const closeFlushTimeout = 2 * time.Second

// Controller owns the auth flow state machine and the session of one
// browser client. All methods are safe for concurrent use. The internal
// mutex is never held across a backend call.
type Controller struct {
	cfg           Config
	client        api.Client
	store         tokenstore.Store
	log           *zap.Logger
	telemetry     *Telemetry
	ownsTelemetry bool
	clientID      string
	now           func() time.Time

	mu           sync.Mutex
	state        FlowState
	tab          Tab
	modalOpen    bool
	notice       *Notice
	inFlight     map[operation]struct{}
	session      Session
	pendingEmail string
	resetToken   string
	otp          OTPInput
	lastOTPSent  time.Time
}

// ClientID returns the identifier this controller was built for.
func (c *Controller) ClientID() string {
	if c == nil {
		return ""
	}
	return c.clientID
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	return cloneConfig(c.cfg)
}

// Telemetry returns the metrics and audit bundle the controller reports to.
func (c *Controller) Telemetry() *Telemetry {
	return c.telemetry
}

// Close releases the telemetry when the controller created it itself.
// With shared telemetry it only flushes the audit events emitted so far.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	if c.ownsTelemetry {
		c.telemetry.Close()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	if err := c.telemetry.Flush(ctx); err != nil && !errors.Is(err, audit.ErrClosed) {
		c.log.Warn("audit flush on close failed", zap.Error(err))
	}
}

// View returns a snapshot of everything the presentation layer renders.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:         c.state,
		Tab:           c.tab,
		ModalOpen:     c.modalOpen,
		Loading:       len(c.inFlight) > 0,
		PendingEmail:  c.pendingEmail,
		HasResetToken: c.resetToken != "",
		OTP:           c.otp.view(),
		Session: SessionView{
			Status:          c.session.Status,
			IsAuthenticated: c.session.IsAuthenticated(),
			User:            c.session.User.clone(),
		},
	}
	if v.Session.IsAuthenticated {
		v.Session.IsAdmin = c.session.User.IsAdmin()
		v.Session.IsSuperAdmin = c.session.User.IsSuperAdmin()
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}
	return v
}

func (c *Controller) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading is true while any backend call is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight) > 0
}

func (c *Controller) Notice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return nil
	}
	n := *c.notice
	return &n
}

func (c *Controller) PendingEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingEmail
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

/*
====================================
LOCAL UI OPERATIONS
====================================
*/

func (c *Controller) OpenAuthModal() {
	c.mu.Lock()
	c.modalOpen = true
	c.mu.Unlock()
}

// CloseAuthModal hides the modal and discards the entered code and any notice.
func (c *Controller) CloseAuthModal() {
	c.mu.Lock()
	c.modalOpen = false
	c.otp.Reset()
	c.notice = nil
	c.mu.Unlock()
}

// SwitchTab selects the login or register form. Only valid in StateInitial.
func (c *Controller) SwitchTab(tab Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInitial {
		return ErrInvalidTransition
	}
	c.tab = tab
	c.notice = nil
	return nil
}

// ShowForgotPassword moves from the login form to the forgot-password form.
func (c *Controller) ShowForgotPassword(ctx context.Context) error {
	c.mu.Lock()
	from := c.state
	if _, ok := c.fireLocked(triggerShowForgot); !ok {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.notice = nil
	c.modalOpen = true
	c.mu.Unlock()

	c.recordTransition(ctx, from, StateForgotPasswordForm, triggerShowForgot)
	return nil
}

// BackToLogin returns to StateInitial from anywhere, dropping the pending
// email, the reset token and the entered code.
func (c *Controller) BackToLogin(ctx context.Context) {
	c.mu.Lock()
	from := c.state
	c.fireLocked(triggerBackToLogin)
	c.tab = TabLogin
	c.notice = nil
	c.pendingEmail = ""
	c.resetToken = ""
	c.otp.Reset()
	c.mu.Unlock()

	if from != StateInitial {
		c.recordTransition(ctx, from, StateInitial, triggerBackToLogin)
	}
}

// SetOTPDigit writes one digit of the verification code.
func (c *Controller) SetOTPDigit(i int, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.otp.Set(i, value)
}

func (c *Controller) BackspaceOTP(i int) {
	c.mu.Lock()
	c.otp.Backspace(i)
	c.mu.Unlock()
}

func (c *Controller) PasteOTP(s string) {
	c.mu.Lock()
	c.otp.Paste(s)
	c.mu.Unlock()
}

/*
====================================
INTERNAL HELPERS
====================================
*/

// fireLocked applies on to the current state. c.mu must be held.
func (c *Controller) fireLocked(on trigger) (FlowState, bool) {
	to, ok := nextState(c.state, on)
	if ok {
		c.state = to
	}
	return to, ok
}

func (c *Controller) canFireLocked(on trigger) bool {
	_, ok := nextState(c.state, on)
	return ok
}

// begin reserves op. check runs under the lock and can refuse the call
// before any network traffic; a *ValidationError becomes the error notice.
// On success the previous notice is cleared.
func (c *Controller) begin(op operation, check func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[op]; busy {
		c.telemetry.inc(MetricOverlapRejected)
		return ErrOperationInFlight
	}
	if check != nil {
		if err := check(); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				c.notice = ErrorNotice(verr.Message)
				c.telemetry.inc(MetricValidationRejected)
			}
			return err
		}
	}
	c.notice = nil
	c.inFlight[op] = struct{}{}
	return nil
}

func (c *Controller) end(op operation) {
	c.mu.Lock()
	delete(c.inFlight, op)
	c.mu.Unlock()
}

// remote runs one backend call and records its latency.
func (c *Controller) remote(fn func() error) error {
	start := time.Now()
	err := fn()
	c.telemetry.observe(MetricRemoteCallLatency, time.Since(start))
	return err
}

// persist writes tokens to the store. A failure is logged and counted but
// never fails the operation: the in-memory session stays authoritative.
func (c *Controller) persist(ctx context.Context, tokens tokenstore.Tokens) {
	if err := c.store.Set(ctx, tokens); err != nil {
		c.telemetry.inc(MetricTokenPersistFailure)
		c.log.Warn("token persistence failed", zap.Error(errors.Join(ErrSessionPersist, err)))
	}
}

// failed surfaces err as the error notice and records the failure.
func (c *Controller) failed(ctx context.Context, op operation, err error, fallback string, ev AuditEvent) {
	msg := noticeMessage(err, fallback)

	c.mu.Lock()
	c.notice = ErrorNotice(msg)
	ev.FromState = c.state.String()
	c.mu.Unlock()

	c.log.Warn(op.String()+" failed", zap.Error(err))
	c.record(ctx, op, err, ev)
}

func (c *Controller) record(ctx context.Context, op operation, err error, ev AuditEvent) {
	info := operations[op]
	if err == nil {
		c.telemetry.inc(info.success)
	} else {
		c.telemetry.inc(info.failure)
		ev.Error = err.Error()
	}
	ev.EventType = info.auditEvent
	ev.ClientID = c.clientID
	ev.Success = err == nil
	c.telemetry.emit(ctx, ev)
}

func (c *Controller) recordTransition(ctx context.Context, from, to FlowState, on trigger) {
	c.log.Debug("flow transition",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Stringer("trigger", on),
	)
	c.telemetry.emit(ctx, AuditEvent{
		EventType: auditEventTransition,
		ClientID:  c.clientID,
		FromState: from.String(),
		ToState:   to.String(),
		Success:   true,
		Metadata:  map[string]string{"trigger": on.String()},
	})
}

// noticeMessage picks the text shown to the user for err.
func noticeMessage(err error, fallback string) string {
	var rej *rejection
	if errors.As(err, &rej) && rej.message != "" {
		return rej.message
	}
	if errors.Is(err, api.ErrUnavailable) {
		return "Network error. Please check your connection and try again."
	}
	return api.Message(err, fallback)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func maskEmail(email string) zap.Field {
	return zap.String("email", logger.MaskEmail(email))
}

func messageText(resp *api.MessageResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Message
}
