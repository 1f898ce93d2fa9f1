package internaldefs

import (
	"github.com/MrEthical07/authflow"
)

// CounterDef names one flow counter for exporters.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for exporters.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Successful logins."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Failed or rejected logins."},
	{ID: authflow.MetricRegisterSuccess, Name: "authflow_register_success_total", Help: "Accepted registrations."},
	{ID: authflow.MetricRegisterFailure, Name: "authflow_register_failure_total", Help: "Failed registrations."},
	{ID: authflow.MetricOTPVerifySuccess, Name: "authflow_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: authflow.MetricOTPVerifyFailure, Name: "authflow_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: authflow.MetricOTPResendSuccess, Name: "authflow_otp_resend_success_total", Help: "OTP codes resent."},
	{ID: authflow.MetricOTPResendFailure, Name: "authflow_otp_resend_failure_total", Help: "Failed OTP resend calls."},
	{ID: authflow.MetricOTPResendThrottled, Name: "authflow_otp_resend_throttled_total", Help: "OTP resends refused by the local cooldown."},
	{ID: authflow.MetricForgotPasswordSuccess, Name: "authflow_forgot_password_success_total", Help: "Password reset emails requested."},
	{ID: authflow.MetricForgotPasswordFailure, Name: "authflow_forgot_password_failure_total", Help: "Failed password reset requests."},
	{ID: authflow.MetricPasswordResetSuccess, Name: "authflow_password_reset_success_total", Help: "Completed password resets."},
	{ID: authflow.MetricPasswordResetFailure, Name: "authflow_password_reset_failure_total", Help: "Failed password resets."},
	{ID: authflow.MetricLogout, Name: "authflow_logout_total", Help: "Logouts."},
	{ID: authflow.MetricLogoutRemoteFailure, Name: "authflow_logout_remote_failure_total", Help: "Logouts whose backend call failed."},
	{ID: authflow.MetricSessionRestored, Name: "authflow_session_restored_total", Help: "Sessions restored from stored tokens."},
	{ID: authflow.MetricSessionInvalidated, Name: "authflow_session_invalidated_total", Help: "Sessions discarded as expired or revoked."},
	{ID: authflow.MetricOAuthCallbackSuccess, Name: "authflow_oauth_callback_success_total", Help: "Completed OAuth sign-ins."},
	{ID: authflow.MetricOAuthCallbackFailure, Name: "authflow_oauth_callback_failure_total", Help: "Failed OAuth sign-ins."},
	{ID: authflow.MetricValidationRejected, Name: "authflow_validation_rejected_total", Help: "Operations refused by local validation."},
	{ID: authflow.MetricOverlapRejected, Name: "authflow_overlap_rejected_total", Help: "Operations refused because the same operation was in flight."},
	{ID: authflow.MetricGuardDenied, Name: "authflow_guard_denied_total", Help: "Route guard redirects."},
	{ID: authflow.MetricTokenPersistFailure, Name: "authflow_token_persist_failure_total", Help: "Token store writes that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricRemoteCallLatency, Name: "authflow_remote_call_latency_seconds", Help: "Auth backend call latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds into instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight bucket array, ignoring
// extra entries and zero filling missing ones.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
