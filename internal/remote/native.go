package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// NativeTransport speaks SSH in-process with golang.org/x/crypto/ssh. It
// needs no ssh or sshpass binaries and cannot prompt by construction.
type NativeTransport struct {
	ConnectTimeout time.Duration
}

// NewNativeTransport returns a NativeTransport.
func NewNativeTransport(connectTimeout time.Duration) *NativeTransport {
	return &NativeTransport{ConnectTimeout: connectTimeout}
}

// Run dials target, runs command in a single session and closes the
// connection. Host keys are not verified: instances are freshly built and
// their keys are unknown to this host.
func (t *NativeTransport) Run(ctx context.Context, target Target, command string) (Result, error) {
	authMethod, err := authMethodFor(target)
	if err != nil {
		return Result{}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "load credentials", Err: err}
	}

	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // instances are ephemeral and unknown
		Timeout:         timeout,
	}

	port := target.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(target.Address, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "connect", Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return Result{}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "timed out", Err: ctx.Err()}
		}
		return Result{}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "handshake", Err: err}
	}
	client := ssh.NewClient(clientConn, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "open session", Err: err}
	}
	defer func() { _ = session.Close() }()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = client.Close()
		<-done
		return Result{Output: out.String()}, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "timed out", Err: ctx.Err()}
	case err = <-done:
	}

	res := Result{Output: out.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	if ctx.Err() != nil {
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "timed out", Err: ctx.Err()}
	}
	return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "session", Err: err}
}

func authMethodFor(target Target) (ssh.AuthMethod, error) {
	if target.Auth == AuthKey {
		signer, err := LoadSigner(target.KeyPath)
		if err != nil {
			return nil, err
		}
		return ssh.PublicKeys(signer), nil
	}
	return ssh.Password(target.Password), nil
}

// LoadSigner reads and parses an unencrypted private key file.
func LoadSigner(path string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deploy key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse deploy key %s: %w", path, err)
	}
	return signer, nil
}
