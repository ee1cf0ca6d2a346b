package provisionctl

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rservers/RightClaw-Build/internal/inventory"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
	"github.com/rservers/RightClaw-Build/internal/remote"
)

// Prober is satisfied by *probe.Prober.
type Prober interface {
	WaitUntilReachable(ctx context.Context, params probe.Params) probe.Result
}

// Executor is satisfied by *remote.Executor.
type Executor interface {
	Execute(ctx context.Context, address string, cred model.Credential, command string, timeout time.Duration) (remote.Result, error)
}

// AddressStore is satisfied by *inventory.Store.
type AddressStore interface {
	UpsertAddress(ctx context.Context, serviceID int, address string) error
}

// ExitTransport is the exec exit status when the command never reached the
// remote shell. Other local failures exit 1.
const ExitTransport = 255

// Probe runs the reachability probe from this host and prints one line per
// attempt to out.
func Probe(ctx context.Context, p Prober, params probe.Params, out io.Writer) probe.Result {
	params.OnAttempt = func(att probe.Attempt) {
		if att.Err != nil {
			fmt.Fprintf(out, "attempt #%d after %s: %v\n", att.Number, att.Elapsed.Round(time.Second), att.Err)
			return
		}
		fmt.Fprintf(out, "attempt #%d after %s: reachable\n", att.Number, att.Elapsed.Round(time.Second))
	}
	res := p.WaitUntilReachable(ctx, params)
	if res.Ready {
		fmt.Fprintf(out, "%s is online after %s (attempt #%d)\n", params.Address, res.Elapsed.Round(time.Second), res.Attempts)
	} else {
		fmt.Fprintf(out, "%s did not come online within %s (%d attempts)\n", params.Address, params.MaxWait, res.Attempts)
	}
	return res
}

// Exec runs one command with the worker's credential policy and copies the
// combined output to out. The returned code is the remote exit status, or
// ExitTransport with the error when the command could not be run.
func Exec(ctx context.Context, e Executor, address string, cred model.Credential, command string, timeout time.Duration, out io.Writer) (int, error) {
	res, err := e.Execute(ctx, address, cred, command, timeout)
	if res.Output != "" {
		fmt.Fprintln(out, res.Output)
	}
	if err != nil {
		if remote.IsTransport(err) {
			return ExitTransport, err
		}
		return 1, err
	}
	fmt.Fprintf(out, "exit %d via %s auth in %s\n", res.ExitCode, res.Auth, res.Duration.Round(time.Millisecond))
	return res.ExitCode, nil
}

// Seed records address as the fleet address of serviceID, so the locator
// finds it for events whose payload carries no dedicated IP. It returns the
// stored (normalized) address.
func Seed(ctx context.Context, s AddressStore, serviceID int, address string) (string, error) {
	if serviceID <= 0 {
		return "", fmt.Errorf("service id must be positive, got %d", serviceID)
	}
	addr := inventory.NormalizeAddress(address)
	if net.ParseIP(addr) == nil {
		return "", fmt.Errorf("invalid address %q", address)
	}
	if err := s.UpsertAddress(ctx, serviceID, addr); err != nil {
		return "", err
	}
	return addr, nil
}
