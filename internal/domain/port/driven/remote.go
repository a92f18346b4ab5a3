package driven

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// Remote operations, used as the Op field of remote errors.
const (
	OpConnect = "connect"
	OpList    = "list services"
	OpStart   = "start service"
	OpStop    = "stop service"
)

// ErrInvalidServiceName is returned for service names that cannot be sent to
// a host. Nothing is executed remotely when it is returned.
var ErrInvalidServiceName = errors.New("invalid service name")

// MaxServiceNameLen is the Windows SCM limit for a service key name.
const MaxServiceNameLen = 256

// ValidateServiceName rejects names the SCM would never accept and names that
// the remote shell would expand as wildcard patterns (* ? [ ]), since a
// pattern can address more than one service.
func ValidateServiceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidServiceName)
	}
	if len(name) > MaxServiceNameLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidServiceName, MaxServiceNameLen)
	}
	for _, r := range name {
		switch {
		case unicode.IsControl(r), r == '/', r == '\\':
			return fmt.Errorf("%w: %q contains %q", ErrInvalidServiceName, name, r)
		case r == '*', r == '?', r == '[', r == ']':
			return fmt.Errorf("%w: %q contains wildcard %q", ErrInvalidServiceName, name, r)
		}
	}
	return nil
}

// SessionOpener is the driven port for the remote command client. Open performs
// the authentication handshake and returns a session the caller must Close.
// Handshake failures are reported as *ConnectionError.
type SessionOpener interface {
	Open(ctx context.Context, target model.RemoteTarget) (Session, error)
}

// Session is an authenticated remote-management session with a single host.
// Every call is attempted exactly once.
type Session interface {
	ListServices(ctx context.Context) ([]model.ObservedService, error)
	StartService(ctx context.Context, name string) (string, error)
	StopService(ctx context.Context, name string) (string, error)
	Close() error
}

// ConnectionError reports that the host could not be reached or refused the
// supplied credentials. It is distinct from a command that ran and failed.
type ConnectionError struct {
	Host string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: connection failed: %v", e.Op, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteExecutionError reports that a session was established but the remote
// command returned a non-success result. Diagnostic is the remote error text,
// verbatim. Service is empty for list operations.
type RemoteExecutionError struct {
	Host       string
	Op         string
	Service    string
	ExitCode   int
	Diagnostic string
}

func (e *RemoteExecutionError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s %q on %s failed (exit %d): %s", e.Op, e.Service, e.Host, e.ExitCode, e.Diagnostic)
	}
	return fmt.Sprintf("%s on %s failed (exit %d): %s", e.Op, e.Host, e.ExitCode, e.Diagnostic)
}
