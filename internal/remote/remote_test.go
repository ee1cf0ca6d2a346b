package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rservers/RightClaw-Build/internal/model"
)

type fakeTransport struct {
	mu          sync.Mutex
	targets     []Target
	commands    []string
	hadDeadline bool
	result      Result
	err         error
}

func (f *fakeTransport) Run(ctx context.Context, target Target, command string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	f.commands = append(f.commands, command)
	_, f.hadDeadline = ctx.Deadline()
	return f.result, f.err
}

func writeKey(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rightservers_deploy")
	require.NoError(t, os.WriteFile(path, []byte("key material"), 0o600))
	return path
}

func TestExecute_KeyPresent_NeverUsesPassword(t *testing.T) {
	ft := &fakeTransport{result: Result{Output: "ok\n"}}
	e := NewExecutor(ft, zerolog.Nop())

	cred := model.Credential{KeyPath: writeKey(t), User: "root", Password: "from-event"}
	res, err := e.Execute(context.Background(), "10.0.0.5", cred, "uptime", time.Minute)

	require.NoError(t, err)
	require.Len(t, ft.targets, 1)
	target := ft.targets[0]
	assert.Equal(t, AuthKey, target.Auth)
	assert.Equal(t, cred.KeyPath, target.KeyPath)
	assert.Empty(t, target.Password)
	assert.Equal(t, "root", target.User)
	assert.Equal(t, DefaultPort, target.Port)
	assert.Equal(t, AuthKey, res.Auth)
	assert.Equal(t, "ok", res.Output)
	assert.True(t, ft.hadDeadline)
}

func TestExecute_KeyMissing_UsesPasswordVerbatim(t *testing.T) {
	ft := &fakeTransport{}
	e := NewExecutor(ft, zerolog.Nop())

	cred := model.Credential{KeyPath: filepath.Join(t.TempDir(), "absent"), User: "root", Password: " p@ss w0rd' "}
	res, err := e.Execute(context.Background(), "10.0.0.5", cred, "uptime", 0)

	require.NoError(t, err)
	require.Len(t, ft.targets, 1)
	assert.Equal(t, AuthPassword, ft.targets[0].Auth)
	assert.Equal(t, " p@ss w0rd' ", ft.targets[0].Password)
	assert.Empty(t, ft.targets[0].KeyPath)
	assert.False(t, ft.hadDeadline)
	assert.Equal(t, NoOutput, res.Text())
}

func TestExecute_KeyPathIsDirectory_FallsBackToPassword(t *testing.T) {
	ft := &fakeTransport{}
	e := NewExecutor(ft, zerolog.Nop())

	cred := model.Credential{KeyPath: t.TempDir(), User: "root", Password: "x"}
	_, err := e.Execute(context.Background(), "10.0.0.5", cred, "uptime", time.Second)
	require.NoError(t, err)
	assert.Equal(t, AuthPassword, ft.targets[0].Auth)
}

func TestExecute_NoKeyNoPassword_FailsWithoutDialing(t *testing.T) {
	ft := &fakeTransport{}
	e := NewExecutor(ft, zerolog.Nop())

	_, err := e.Execute(context.Background(), "10.0.0.5", model.Credential{User: "root"}, "uptime", time.Second)

	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "no password supplied")
	assert.Empty(t, ft.targets)
}

func TestExecute_InvalidAddress(t *testing.T) {
	ft := &fakeTransport{}
	e := NewExecutor(ft, zerolog.Nop())

	_, err := e.Execute(context.Background(), "-oProxyCommand=touch /tmp/pwned", model.Credential{User: "root", Password: "x"}, "uptime", time.Second)

	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Empty(t, ft.targets)
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	ft := &fakeTransport{result: Result{Output: "  Gateway: stopped  ", ExitCode: 3}}
	e := NewExecutor(ft, zerolog.Nop())

	res, err := e.Execute(context.Background(), "10.0.0.5", model.Credential{User: "root", Password: "x"}, "openclaw status", time.Second)

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "Gateway: stopped", res.Text())
}

func TestExecute_TransportErrorPropagates(t *testing.T) {
	ft := &fakeTransport{err: &TransportError{Address: "10.0.0.5", Auth: AuthPassword, Reason: "password rejected"}}
	e := NewExecutor(ft, zerolog.Nop())

	_, err := e.Execute(context.Background(), "10.0.0.5", model.Credential{User: "root", Password: "wrong"}, "uptime", time.Second)

	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "password rejected", te.Reason)
}

func TestBestEffort_FoldsTransportError(t *testing.T) {
	ft := &fakeTransport{err: &TransportError{Address: "10.0.0.5", Auth: AuthPassword, Reason: "connection or authentication failed"}}
	e := NewExecutor(ft, zerolog.Nop())

	out := e.BestEffort(context.Background(), "10.0.0.5", model.Credential{User: "root", Password: "x"}, "openclaw gateway stop 2>/dev/null || true", time.Second)

	assert.True(t, out.Failed())
	assert.Contains(t, out.Err.Error(), "connection or authentication failed")
	assert.Len(t, ft.targets, 1)
}

func TestBestEffort_Success(t *testing.T) {
	ft := &fakeTransport{result: Result{Output: "stopped"}}
	e := NewExecutor(ft, zerolog.Nop())

	out := e.BestEffort(context.Background(), "10.0.0.5", model.Credential{User: "root", Password: "x"}, "openclaw gateway stop 2>/dev/null || true", time.Second)

	assert.False(t, out.Failed())
	assert.Equal(t, "stopped", out.Text())
}

func TestTransportError_Message(t *testing.T) {
	err := &TransportError{Address: "10.0.0.5", Auth: AuthKey, Reason: "timed out", Err: context.DeadlineExceeded, Output: "banner"}
	assert.Equal(t, "ssh 10.0.0.5 (key auth): timed out: context deadline exceeded: banner", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(TransportExec, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &ExecTransport{}, tr)

	tr, err = NewTransport(TransportNative, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &NativeTransport{}, tr)

	_, err = NewTransport("telnet", time.Second)
	assert.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	for _, ok := range []string{"10.0.0.5", "2001:db8::1", "vps-42.rightservers.com"} {
		assert.NoError(t, ValidateAddress(ok), ok)
	}
	for _, bad := range []string{"", "-oProxyCommand=x", "10.0.0.5 rm", "root@10.0.0.5", ".hidden", "a;b"} {
		assert.Error(t, ValidateAddress(bad), bad)
	}
}
