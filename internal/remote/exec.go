package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// Exit codes that mean the command never reached the remote shell.
const (
	sshExitTransport     = 255
	sshpassWrongPassword = 5
	sshpassHostKeyError  = 6
)

// ExecTransport shells out to the OpenSSH client, and to sshpass for
// password auth. Arguments are passed as a list and the password travels in
// the SSHPASS environment variable, never on the command line.
type ExecTransport struct {
	SSHBinary      string
	SSHPassBinary  string
	ConnectTimeout time.Duration
}

// NewExecTransport returns an ExecTransport using ssh and sshpass from PATH.
func NewExecTransport(connectTimeout time.Duration) *ExecTransport {
	return &ExecTransport{
		SSHBinary:      "ssh",
		SSHPassBinary:  "sshpass",
		ConnectTimeout: connectTimeout,
	}
}

// Args returns the program, its arguments and any extra environment for
// running command on target.
func (t *ExecTransport) Args(target Target, command string) (string, []string, []string) {
	port := target.Port
	if port == 0 {
		port = DefaultPort
	}
	connectTimeout := int(t.ConnectTimeout / time.Second)
	if connectTimeout <= 0 {
		connectTimeout = 15
	}

	sshArgs := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
		"-o", "ConnectTimeout=" + strconv.Itoa(connectTimeout),
		"-p", strconv.Itoa(port),
	}

	if target.Auth == AuthKey {
		sshArgs = append(sshArgs,
			"-o", "BatchMode=yes",
			"-o", "IdentitiesOnly=yes",
			"-i", target.KeyPath,
		)
		sshArgs = append(sshArgs, "--", target.User+"@"+target.Address, command)
		return t.SSHBinary, sshArgs, nil
	}

	sshArgs = append(sshArgs,
		"-o", "PreferredAuthentications=password",
		"-o", "PubkeyAuthentication=no",
		"-o", "NumberOfPasswordPrompts=1",
	)
	sshArgs = append(sshArgs, "--", target.User+"@"+target.Address, command)

	args := append([]string{"-e", t.SSHBinary}, sshArgs...)
	return t.SSHPassBinary, args, []string{"SSHPASS=" + target.Password}
}

// Run executes command and classifies the exit status.
func (t *ExecTransport) Run(ctx context.Context, target Target, command string) (Result, error) {
	name, args, env := t.Args(target, command)

	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.WaitDelay = 5 * time.Second

	out, err := cmd.CombinedOutput()
	res := Result{Output: string(out)}

	if ctx.Err() == context.DeadlineExceeded {
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "timed out", Err: ctx.Err()}
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: fmt.Sprintf("start %s", name), Err: err}
	}

	code := exitErr.ExitCode()
	switch {
	case code == sshExitTransport:
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "connection or authentication failed", Output: trimmed(out), Err: err}
	case target.Auth == AuthPassword && code == sshpassWrongPassword:
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "password rejected", Err: err}
	case target.Auth == AuthPassword && code == sshpassHostKeyError:
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "host key verification failed", Err: err}
	case code < 0:
		return res, &TransportError{Address: target.Address, Auth: target.Auth, Reason: "ssh killed", Err: err}
	}

	res.ExitCode = code
	return res, nil
}

func trimmed(b []byte) string {
	const max = 512
	s := string(b)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
