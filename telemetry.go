package authflow

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/metrics"
)

type (
	// AuditEvent is one flow-level audit record.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = audit.Sink
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink buffers events in a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = audit.JSONWriterSink

	MetricID        = metrics.MetricID
	MetricsSnapshot = metrics.Snapshot
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
)

const (
	MetricLoginSuccess          = metrics.MetricLoginSuccess
	MetricLoginFailure          = metrics.MetricLoginFailure
	MetricRegisterSuccess       = metrics.MetricRegisterSuccess
	MetricRegisterFailure       = metrics.MetricRegisterFailure
	MetricOTPVerifySuccess      = metrics.MetricOTPVerifySuccess
	MetricOTPVerifyFailure      = metrics.MetricOTPVerifyFailure
	MetricOTPResendSuccess      = metrics.MetricOTPResendSuccess
	MetricOTPResendFailure      = metrics.MetricOTPResendFailure
	MetricOTPResendThrottled    = metrics.MetricOTPResendThrottled
	MetricForgotPasswordSuccess = metrics.MetricForgotPasswordSuccess
	MetricForgotPasswordFailure = metrics.MetricForgotPasswordFailure
	MetricPasswordResetSuccess  = metrics.MetricPasswordResetSuccess
	MetricPasswordResetFailure  = metrics.MetricPasswordResetFailure
	MetricLogout                = metrics.MetricLogout
	MetricLogoutRemoteFailure   = metrics.MetricLogoutRemoteFailure
	MetricSessionRestored       = metrics.MetricSessionRestored
	MetricSessionInvalidated    = metrics.MetricSessionInvalidated
	MetricOAuthCallbackSuccess  = metrics.MetricOAuthCallbackSuccess
	MetricOAuthCallbackFailure  = metrics.MetricOAuthCallbackFailure
	MetricValidationRejected    = metrics.MetricValidationRejected
	MetricOverlapRejected       = metrics.MetricOverlapRejected
	MetricGuardDenied           = metrics.MetricGuardDenied
	MetricTokenPersistFailure   = metrics.MetricTokenPersistFailure
	MetricRemoteCallLatency     = metrics.MetricRemoteCallLatency
)

// Telemetry bundles the metric counters and the audit dispatcher. One
// Telemetry may be shared by many controllers so that a process exports a
// single set of counters.
type Telemetry struct {
	metrics *metrics.Metrics
	audit   *audit.Dispatcher
}

// NewTelemetry starts the audit dispatcher goroutine when audit is enabled.
// Call Close to drain it.
func NewTelemetry(auditCfg AuditConfig, metricsCfg MetricsConfig, sink AuditSink) *Telemetry {
	return &Telemetry{
		metrics: metrics.New(metrics.Config{
			Enabled:       metricsCfg.Enabled,
			EnableLatency: metricsCfg.EnableLatencyHistograms,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    auditCfg.Enabled,
			BufferSize: auditCfg.BufferSize,
			DropIfFull: auditCfg.DropIfFull,
		}, sink),
	}
}

func (t *Telemetry) MetricsSnapshot() MetricsSnapshot {
	if t == nil {
		return metrics.Snapshot{}
	}
	return t.metrics.Snapshot()
}

// AuditDropped reports events discarded because the buffer was full.
func (t *Telemetry) AuditDropped() uint64 {
	if t == nil {
		return 0
	}
	return t.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (t *Telemetry) AuditDroppedByType() map[string]uint64 {
	if t == nil {
		return map[string]uint64{}
	}
	return t.audit.DroppedByType()
}

// Flush waits until audit events emitted so far have reached the sink,
// leaving the dispatcher running for other controllers.
func (t *Telemetry) Flush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.audit.Flush(ctx)
}

// Close flushes buffered audit events. It is safe to call more than once.
func (t *Telemetry) Close() {
	if t == nil {
		return
	}
	t.audit.Close()
}

// RecordGuardDenied counts a route guard redirect.
func (t *Telemetry) RecordGuardDenied() {
	if t == nil {
		return
	}
	t.metrics.Inc(metrics.MetricGuardDenied)
}

func (t *Telemetry) inc(id MetricID) {
	if t == nil {
		return
	}
	t.metrics.Inc(id)
}

func (t *Telemetry) observe(id MetricID, d time.Duration) {
	if t == nil {
		return
	}
	t.metrics.Observe(id, d)
}

func (t *Telemetry) emit(ctx context.Context, event AuditEvent) {
	if t == nil {
		return
	}
	t.audit.Emit(ctx, event)
}
