// Package remote runs one command on an instance over SSH.
//
// Authentication prefers the fleet deploy key and falls back to the root
// password from the billing event when the key file is absent on this host.
// A freshly provisioned instance may not carry the deploy key yet, so the
// first contact sometimes has to be password based. Every mode is
// non-interactive: anything that would prompt fails instead.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rservers/RightClaw-Build/internal/model"
)

// NoOutput stands in for a command that ran but printed nothing.
const NoOutput = "no output"

// DefaultPort is the SSH port of every managed instance.
const DefaultPort = 22

// Auth methods.
const (
	AuthKey      = "key"
	AuthPassword = "password"
)

// Target is everything a transport needs to reach one instance. Password is
// only populated for password auth.
type Target struct {
	Address  string
	Port     int
	User     string
	Auth     string
	KeyPath  string
	Password string
}

// Result is the outcome of a command that reached the remote shell. A
// non-zero ExitCode is informational: verification commands chain fallback
// probes and routinely end non-zero.
type Result struct {
	Output   string        `json:"output"`
	ExitCode int           `json:"exit_code"`
	Auth     string        `json:"auth"`
	Duration time.Duration `json:"duration"`
}

// Text returns the trimmed output or NoOutput.
func (r Result) Text() string {
	if r.Output == "" {
		return NoOutput
	}
	return r.Output
}

// TransportError means the command never ran to completion on the remote
// side: the host was unreachable, authentication failed or the deadline hit.
type TransportError struct {
	Address string
	Auth    string
	Reason  string
	Output  string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ssh %s (%s auth): %s", e.Address, e.Auth, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, ": %s", e.Output)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Transport executes a command against a target.
type Transport interface {
	Run(ctx context.Context, target Target, command string) (Result, error)
}

// Executor applies the credential policy and timeouts around a Transport.
type Executor struct {
	transport Transport
	logger    zerolog.Logger
	keyExists func(path string) bool
}

// NewExecutor creates an Executor on top of transport.
func NewExecutor(transport Transport, logger zerolog.Logger) *Executor {
	return &Executor{
		transport: transport,
		logger:    logger.With().Str("component", "remote").Logger(),
		keyExists: fileExists,
	}
}

// Execute runs command on address as cred.User. timeout bounds the whole
// call including connection setup; zero means only ctx bounds it.
func (e *Executor) Execute(ctx context.Context, address string, cred model.Credential, command string, timeout time.Duration) (Result, error) {
	target := Target{
		Address: address,
		Port:    DefaultPort,
		User:    cred.User,
	}

	if cred.KeyPath != "" && e.keyExists(cred.KeyPath) {
		target.Auth = AuthKey
		target.KeyPath = cred.KeyPath
	} else {
		target.Auth = AuthPassword
		target.Password = cred.Password
	}

	if err := ValidateAddress(address); err != nil {
		return Result{Auth: target.Auth}, &TransportError{Address: address, Auth: target.Auth, Reason: "invalid address", Err: err}
	}
	if target.User == "" {
		return Result{Auth: target.Auth}, &TransportError{Address: address, Auth: target.Auth, Reason: "no remote user configured"}
	}
	if target.Auth == AuthPassword && target.Password == "" {
		return Result{Auth: target.Auth}, &TransportError{Address: address, Auth: target.Auth, Reason: "deploy key missing and no password supplied"}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.transport.Run(ctx, target, command)
	res.Auth = target.Auth
	res.Duration = time.Since(start)
	res.Output = strings.TrimSpace(res.Output)

	if err != nil {
		e.logger.Warn().Err(err).Str("address", address).Str("auth", target.Auth).Msg("remote command failed to run")
		return res, err
	}
	e.logger.Debug().
		Str("address", address).
		Str("auth", target.Auth).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("remote command finished")
	return res, nil
}

// Outcome is the result of a best-effort call. Err holds a transport
// failure for logging; it is never returned as an error.
type Outcome struct {
	Result
	Err error
}

// Failed reports whether the command never reached the remote shell.
func (o Outcome) Failed() bool { return o.Err != nil }

// BestEffort runs command and folds any failure into the Outcome. Callers
// that must not block on an unreachable host use this instead of Execute.
func (e *Executor) BestEffort(ctx context.Context, address string, cred model.Credential, command string, timeout time.Duration) Outcome {
	res, err := e.Execute(ctx, address, cred, command, timeout)
	return Outcome{Result: res, Err: err}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
