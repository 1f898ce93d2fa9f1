package authflow

import "github.com/MrEthical07/authflow/internal/audit"

// trigger is an event that may move the flow to another state.
type trigger uint8

const (
	triggerRegistered trigger = iota
	triggerOTPVerified
	triggerLoggedIn
	triggerShowForgot
	triggerResetRequested
	triggerResetLink
	triggerResetCompleted
	triggerBackToLogin
	triggerLoggedOut
	triggerOAuthCompleted
)

var triggerNames = [...]string{
	triggerRegistered:     "registered",
	triggerOTPVerified:    "otp_verified",
	triggerLoggedIn:       "logged_in",
	triggerShowForgot:     "show_forgot_password",
	triggerResetRequested: "reset_requested",
	triggerResetLink:      "reset_link",
	triggerResetCompleted: "reset_completed",
	triggerBackToLogin:    "back_to_login",
	triggerLoggedOut:      "logged_out",
	triggerOAuthCompleted: "oauth_completed",
}

func (t trigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return "unknown"
}

type transitionKey struct {
	from FlowState
	on   trigger
}

var transitions = map[transitionKey]FlowState{
	{StateInitial, triggerRegistered}:                StateOTPSent,
	{StateOTPSent, triggerOTPVerified}:               StateInitial,
	{StateInitial, triggerLoggedIn}:                  StateInitial,
	{StateInitial, triggerShowForgot}:                StateForgotPasswordForm,
	{StateForgotPasswordForm, triggerResetRequested}: StateForgotPasswordRequested,
	{StateResetPasswordForm, triggerResetCompleted}:  StateInitial,
}

// These triggers apply from every state.
var anyStateTransitions = map[trigger]FlowState{
	triggerResetLink:      StateResetPasswordForm,
	triggerBackToLogin:    StateInitial,
	triggerLoggedOut:      StateInitial,
	triggerOAuthCompleted: StateInitial,
}

func nextState(from FlowState, on trigger) (FlowState, bool) {
	if to, ok := anyStateTransitions[on]; ok {
		return to, true
	}
	to, ok := transitions[transitionKey{from: from, on: on}]
	return to, ok
}

// operation identifies a remote-backed controller call for overlap
// tracking, metrics and audit.
type operation uint8

const (
	opRegister operation = iota
	opVerifyOTP
	opResendOTP
	opLogin
	opForgotPassword
	opResetPassword
	opLogout
	opBootstrap
	opOAuthCallback
	opCount
)

type operationInfo struct {
	name       string
	auditEvent string
	success    MetricID
	failure    MetricID
}

// noMetric is ignored by the counters.
const noMetric = MetricID(^uint16(0))

var operations = [opCount]operationInfo{
	opRegister:       {"register", audit.EventRegister, MetricRegisterSuccess, MetricRegisterFailure},
	opVerifyOTP:      {"verify_otp", audit.EventOTPVerify, MetricOTPVerifySuccess, MetricOTPVerifyFailure},
	opResendOTP:      {"resend_otp", audit.EventOTPResend, MetricOTPResendSuccess, MetricOTPResendFailure},
	opLogin:          {"login", audit.EventLogin, MetricLoginSuccess, MetricLoginFailure},
	opForgotPassword: {"forgot_password", audit.EventPasswordResetRequest, MetricForgotPasswordSuccess, MetricForgotPasswordFailure},
	opResetPassword:  {"reset_password", audit.EventPasswordReset, MetricPasswordResetSuccess, MetricPasswordResetFailure},
	opLogout:         {"logout", audit.EventLogout, MetricLogout, MetricLogoutRemoteFailure},
	opBootstrap:      {"bootstrap", audit.EventBootstrap, MetricSessionRestored, noMetric},
	opOAuthCallback:  {"oauth_callback", audit.EventOAuthCallback, MetricOAuthCallbackSuccess, MetricOAuthCallbackFailure},
}

func (op operation) String() string {
	if op < opCount {
		return operations[op].name
	}
	return "unknown"
}

const (
	auditEventTransition  = audit.EventTransition
	auditEventInvalidated = audit.EventInvalidated
)
