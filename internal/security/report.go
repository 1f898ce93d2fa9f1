package security

import (
	"net/url"
	"sort"
	"time"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

type Finding struct {
	Severity Severity
	Code     string
	Message  string
}

// ReportInput is the subset of settings the report looks at.
type ReportInput struct {
	ProductionMode     bool
	APIBaseURL         string
	PasswordMinLength  int
	PasswordMinScore   int
	OTPResendCooldown  time.Duration
	DurableStore       bool
	CookieSecure       bool
	ProtectedPrefixes  []string
	RequestRateLimited bool
}

type Report struct {
	ProductionMode         bool
	BackendTLS             bool
	PasswordStrengthActive bool
	ResendCooldownActive   bool
	DurableStoreActive     bool
	RouteGuardActive       bool
	RateLimitingActive     bool
	Findings               []Finding
}

func BuildReport(input ReportInput) Report {
	tls := false
	if u, err := url.Parse(input.APIBaseURL); err == nil && u.Scheme == "https" {
		tls = true
	}

	r := Report{
		ProductionMode:         input.ProductionMode,
		BackendTLS:             tls,
		PasswordStrengthActive: input.PasswordMinScore > 0,
		ResendCooldownActive:   input.OTPResendCooldown > 0,
		DurableStoreActive:     input.DurableStore,
		RouteGuardActive:       len(input.ProtectedPrefixes) > 0,
		RateLimitingActive:     input.RequestRateLimited,
	}

	add := func(sev Severity, code, msg string) {
		r.Findings = append(r.Findings, Finding{Severity: sev, Code: code, Message: msg})
	}

	if input.ProductionMode && !tls {
		add(SeverityCritical, "backend_plaintext", "auth backend is not reached over https")
	}
	if input.ProductionMode && !input.CookieSecure {
		add(SeverityCritical, "cookie_insecure", "session cookies are sent without the Secure flag")
	}
	if input.PasswordMinLength < 8 {
		add(SeverityWarn, "password_short", "password minimum length is below 8")
	}
	if !r.PasswordStrengthActive {
		add(SeverityWarn, "password_strength_off", "password strength estimation is disabled")
	}
	if !r.ResendCooldownActive {
		add(SeverityWarn, "resend_unthrottled", "verification code resend has no cooldown")
	}
	if !r.DurableStoreActive {
		add(SeverityWarn, "store_volatile", "tokens are kept in memory only and are lost on restart")
	}
	if !r.RouteGuardActive {
		add(SeverityWarn, "guard_off", "no protected route prefixes are configured")
	}
	if input.ProductionMode && !r.RateLimitingActive {
		add(SeverityWarn, "rate_limit_off", "request rate limiting is disabled")
	}

	sort.SliceStable(r.Findings, func(i, j int) bool {
		return r.Findings[i].Severity == SeverityCritical && r.Findings[j].Severity != SeverityCritical
	})
	return r
}

// Critical reports whether any finding is critical.
func (r Report) Critical() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
