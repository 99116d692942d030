package authmon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/telemetry/monitor"
)

// Operation names reported by the instrumented service.
const (
	OpLogin        = "auth.login"
	OpRegister     = "auth.register"
	OpTokenRefresh = "auth.token_refresh"
)

// Credentials identify a user logging in.
type Credentials struct {
	Email    string
	Password string
}

// Registration describes a new account.
type Registration struct {
	Email    string
	Password string
	Name     string
}

// Session is the result of a successful authentication.
type Session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Authenticator is the authentication service being instrumented.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Register(ctx context.Context, reg Registration) (*Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Session, error)
}

// Coder is implemented by errors that carry a machine-readable code.
type Coder interface {
	Code() string
}

// ErrorCode returns the code of the first error in err's chain implementing
// Coder, or "".
func ErrorCode(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// Instrumented is an Authenticator that reports to a Monitor and an audit
// Logger.
type Instrumented struct {
	next    Authenticator
	audit   *audit.Logger
	logger  *slog.Logger
	login   monitor.Func[Credentials, *Session]
	reg     monitor.Func[Registration, *Session]
	refresh monitor.Func[string, *Session]
}

var _ Authenticator = (*Instrumented)(nil)

// Instrument decorates next. Audit failures are logged and never change the
// result of the call.
func Instrument(next Authenticator, mon *monitor.Monitor, auditLogger *audit.Logger) *Instrumented {
	a := &Instrumented{
		next:   next,
		audit:  auditLogger,
		logger: slog.Default().With("component", "authmon"),
	}
	a.login = monitor.Wrap(mon, OpLogin, a.doLogin)
	a.reg = monitor.Wrap(mon, OpRegister, a.doRegister)
	a.refresh = monitor.Wrap(mon, OpTokenRefresh, a.doRefresh)
	return a
}

// Login authenticates creds.
func (a *Instrumented) Login(ctx context.Context, creds Credentials) (*Session, error) {
	return a.login(ctx, creds)
}

// Register creates an account.
func (a *Instrumented) Register(ctx context.Context, reg Registration) (*Session, error) {
	return a.reg(ctx, reg)
}

// RefreshToken exchanges a refresh token for a new session.
func (a *Instrumented) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	return a.refresh(ctx, refreshToken)
}

func (a *Instrumented) doLogin(ctx context.Context, creds Credentials) (*Session, error) {
	session, err := a.next.Login(ctx, creds)
	kind := audit.LoginSuccess
	if err != nil {
		kind = audit.LoginFailure
	}
	a.record(ctx, kind, creds.Email, session, err)
	return session, err
}

func (a *Instrumented) doRegister(ctx context.Context, reg Registration) (*Session, error) {
	session, err := a.next.Register(ctx, reg)
	a.record(ctx, audit.Registration, reg.Email, session, err)
	return session, err
}

func (a *Instrumented) doRefresh(ctx context.Context, refreshToken string) (*Session, error) {
	session, err := a.next.RefreshToken(ctx, refreshToken)
	a.record(ctx, audit.TokenRefresh, "", session, err)
	return session, err
}

// record writes one audit entry. ctx carries the operation's correlation id.
func (a *Instrumented) record(ctx context.Context, kind audit.EventKind, email string, session *Session, callErr error) {
	if a.audit == nil {
		return
	}

	client := ClientFromContext(ctx)
	ac := audit.AuthContext{
		Email:     email,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ErrorCode: ErrorCode(callErr),
	}
	if session != nil {
		ac.UserID = session.UserID
	}
	if callErr != nil && ac.ErrorCode == "" {
		ac.ErrorCode = "UNKNOWN"
	}

	if _, err := a.audit.LogAuthAttempt(ctx, kind, ac); err != nil {
		a.logger.WarnContext(ctx, "failed to write audit entry", "event", kind, "error", err)
	}
}
