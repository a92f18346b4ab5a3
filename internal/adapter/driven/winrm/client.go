// Package winrm implements the SessionOpener port over WS-Management using
// the masterzen/winrm library. Commands run through PowerShell on the host.
package winrm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	wsman "github.com/masterzen/winrm"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SessionOpener = (*Opener)(nil)
	_ driven.Session       = (*session)(nil)
)

// Default WS-Management ports.
const (
	DefaultHTTPPort  = 5985
	DefaultHTTPSPort = 5986
)

// handshakeCommand is run by Open to prove the credentials are accepted
// before any service command is attempted.
const handshakeCommand = "hostname"

// ErrSessionClosed is returned by session operations after Close.
var ErrSessionClosed = errors.New("winrm session closed")

// runner is the subset of *wsman.Client used by a session. It runs one
// command in a fresh remote shell and returns stdout, stderr and exit code.
type runner interface {
	RunWithContextWithString(ctx context.Context, command string, stdin string) (string, string, int, error)
}

// Options configures how sessions reach their hosts.
type Options struct {
	// Port defaults to 5985, or 5986 when HTTPS is set.
	Port  int
	HTTPS bool
	// Insecure skips TLS verification for self-signed host certificates.
	Insecure bool
	// Timeout bounds each remote call, including the handshake. Defaults to 60s.
	Timeout time.Duration
}

// Opener dials WinRM sessions. It is safe for concurrent use.
type Opener struct {
	opts   Options
	logger *slog.Logger
	dial   func(target model.RemoteTarget) (runner, error)
}

// NewOpener creates an Opener that dials real WinRM endpoints.
func NewOpener(opts Options, logger *slog.Logger) *Opener {
	if opts.Port == 0 {
		opts.Port = DefaultHTTPPort
		if opts.HTTPS {
			opts.Port = DefaultHTTPSPort
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	o := &Opener{opts: opts, logger: logger}
	o.dial = o.dialWinRM
	return o
}

func (o *Opener) dialWinRM(target model.RemoteTarget) (runner, error) {
	endpoint := wsman.NewEndpoint(target.Address, o.opts.Port, o.opts.HTTPS, o.opts.Insecure, nil, nil, nil, o.opts.Timeout)

	client, err := wsman.NewClient(endpoint, target.Username, target.Password)
	if err != nil {
		return nil, fmt.Errorf("create winrm client: %w", err)
	}
	return client, nil
}

// Open authenticates against the target and returns a session bound to it.
// Any failure here is a *driven.ConnectionError. The caller must Close the session.
func (o *Opener) Open(ctx context.Context, target model.RemoteTarget) (driven.Session, error) {
	r, err := o.dial(target)
	if err != nil {
		return nil, &driven.ConnectionError{Host: target.Address, Op: driven.OpConnect, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	_, stderr, code, err := r.RunWithContextWithString(callCtx, handshakeCommand, "")
	if err != nil {
		return nil, &driven.ConnectionError{Host: target.Address, Op: driven.OpConnect, Err: err}
	}
	if code != 0 {
		return nil, &driven.ConnectionError{
			Host: target.Address,
			Op:   driven.OpConnect,
			Err:  fmt.Errorf("handshake exited %d: %s", code, strings.TrimSpace(cleanCLIXML(stderr))),
		}
	}

	o.logger.Debug("winrm session opened", "target", target.String())

	return &session{
		host:    target.Address,
		runner:  r,
		timeout: o.opts.Timeout,
		logger:  o.logger,
	}, nil
}

// session is a scoped, explicitly released handle on one host.
type session struct {
	host    string
	runner  runner
	timeout time.Duration
	logger  *slog.Logger
	closed  bool
}

// ListServices enumerates the host's services in the order Get-Service emits them.
func (s *session) ListServices(ctx context.Context) ([]model.ObservedService, error) {
	stdout, err := s.runPS(ctx, driven.OpList, "", listServicesScript)
	if err != nil {
		return nil, err
	}

	services, err := parseServiceList(stdout)
	if err != nil {
		return nil, &driven.RemoteExecutionError{
			Host:       s.host,
			Op:         driven.OpList,
			Diagnostic: fmt.Sprintf("unparseable service list: %v", err),
		}
	}

	return services, nil
}

// StartService starts the named service and returns a confirmation message.
func (s *session) StartService(ctx context.Context, name string) (string, error) {
	if err := driven.ValidateServiceName(name); err != nil {
		return "", err
	}

	if _, err := s.runPS(ctx, driven.OpStart, name, controlScript("Start-Service", name)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Service '%s' started successfully.", name), nil
}

// StopService stops the named service and returns a confirmation message.
func (s *session) StopService(ctx context.Context, name string) (string, error) {
	if err := driven.ValidateServiceName(name); err != nil {
		return "", err
	}

	if _, err := s.runPS(ctx, driven.OpStop, name, controlScript("Stop-Service", name)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Service '%s' stopped successfully.", name), nil
}

// Close releases the session. Each command already runs in its own remote
// shell, so there is no server-side state left to tear down.
func (s *session) Close() error {
	s.closed = true
	return nil
}

// runPS runs script under PowerShell exactly once, bounded by the session
// timeout. Transport failures become ConnectionError; a non-zero exit becomes
// RemoteExecutionError carrying the remote error text.
func (s *session) runPS(ctx context.Context, op, service, script string) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, code, err := s.runner.RunWithContextWithString(callCtx, wsman.Powershell(script), "")
	if err != nil {
		return "", &driven.ConnectionError{Host: s.host, Op: op, Err: err}
	}

	s.logger.Debug("winrm command finished",
		"host", s.host,
		"op", op,
		"service", service,
		"exit_code", code,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if code != 0 {
		return "", &driven.RemoteExecutionError{
			Host:       s.host,
			Op:         op,
			Service:    service,
			ExitCode:   code,
			Diagnostic: cleanCLIXML(stderr),
		}
	}

	return stdout, nil
}
