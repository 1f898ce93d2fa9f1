package authflow

import (
	"slices"

	"github.com/MrEthical07/authflow/api"
)

// FlowState is the mutually exclusive tag describing what the auth modal renders.
type FlowState uint8

const (
	// StateInitial shows the login and register tabs.
	StateInitial FlowState = iota
	// StateOTPSent awaits the one-time code sent after registration.
	StateOTPSent
	// StateForgotPasswordForm asks for the account email.
	StateForgotPasswordForm
	// StateForgotPasswordRequested confirms that a reset link was sent.
	StateForgotPasswordRequested
	// StateResetPasswordForm asks for a new password; entered only through a reset link.
	StateResetPasswordForm
)

var flowStateNames = [...]string{
	StateInitial:                 "initial",
	StateOTPSent:                 "otp_sent",
	StateForgotPasswordForm:      "forgot_password_form",
	StateForgotPasswordRequested: "forgot_password_requested",
	StateResetPasswordForm:       "reset_password_form",
}

func (s FlowState) String() string {
	if int(s) < len(flowStateNames) {
		return flowStateNames[s]
	}
	return "unknown"
}

func (s FlowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tab is the sub-view of StateInitial.
type Tab uint8

const (
	TabLogin Tab = iota
	TabRegister
)

func (t Tab) String() string {
	if t == TabRegister {
		return "register"
	}
	return "login"
}

func (t Tab) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTab maps "login" and "register" to a Tab.
func ParseTab(s string) (Tab, bool) {
	switch s {
	case "login":
		return TabLogin, true
	case "register":
		return TabRegister, true
	}
	return TabLogin, false
}

// SessionStatus is the client's belief about its identity.
type SessionStatus uint8

const (
	// SessionUnknown means no bootstrap has run yet, or a stored token awaits validation.
	SessionUnknown SessionStatus = iota
	// SessionAnonymous means no valid token is held.
	SessionAnonymous
	// SessionAuthenticated means a validated token and user are held.
	SessionAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// User is the authenticated identity.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func userFromAPI(u *api.User) *User {
	if u == nil {
		return nil
	}
	n := u.Normalize()
	return &User{
		ID:    n.ID.String(),
		Email: n.Email,
		Name:  n.Name,
		Roles: n.Roles,
	}
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = slices.Clone(u.Roles)
	return &out
}

// Session is owned by the Controller; callers only ever receive copies.
type Session struct {
	Status SessionStatus
	Token  string
	User   *User
}

// IsAuthenticated is true iff a validated token and a user are present.
func (s Session) IsAuthenticated() bool {
	return s.Status == SessionAuthenticated && s.User != nil && s.Token != ""
}

func (s Session) clone() Session {
	s.User = s.User.clone()
	return s
}

// SessionView is the read-only session projection handed to presentation.
type SessionView struct {
	Status          SessionStatus `json:"status"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	IsAdmin         bool          `json:"isAdmin"`
	IsSuperAdmin    bool          `json:"isSuperAdmin"`
	User            *User         `json:"user,omitempty"`
}

// OTPView exposes the digit buffer.
type OTPView struct {
	Digits []string `json:"digits"`
	Focus  int      `json:"focus"`
}

// View is an immutable snapshot of everything the presentation layer renders.
type View struct {
	State         FlowState   `json:"state"`
	Tab           Tab         `json:"tab"`
	ModalOpen     bool        `json:"modalOpen"`
	Loading       bool        `json:"loading"`
	Notice        *Notice     `json:"notice,omitempty"`
	Session       SessionView `json:"session"`
	PendingEmail  string      `json:"pendingEmail,omitempty"`
	HasResetToken bool        `json:"hasResetToken"`
	OTP           OTPView     `json:"otp"`
}
