package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/rservers/RightClaw-Build/internal/eventlog"
	"github.com/rservers/RightClaw-Build/internal/locator"
	"github.com/rservers/RightClaw-Build/internal/metrics"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
	"github.com/rservers/RightClaw-Build/internal/remote"
)

// TierResolver maps a product reference to a tier. *tier.Resolver
// satisfies it.
type TierResolver interface {
	Resolve(ref model.ProductRef) (model.Tier, bool)
}

// InstanceLocator resolves the address of an instance. *locator.Locator
// satisfies it.
type InstanceLocator interface {
	Locate(ctx context.Context, event model.LifecycleEvent) (locator.Location, error)
}

// ReachabilityProber waits for an instance to accept connections.
// *probe.Prober satisfies it.
type ReachabilityProber interface {
	WaitUntilReachable(ctx context.Context, params probe.Params) probe.Result
}

// RemoteExecutor runs one command on an instance and folds transport
// failures into the outcome. *remote.Executor satisfies it.
type RemoteExecutor interface {
	BestEffort(ctx context.Context, address string, cred model.Credential, command string, timeout time.Duration) remote.Outcome
}

// Provisioner contains the activities used by the provisioning and
// lifecycle workflows. Every collaborator is injected; the struct holds no
// per-invocation state.
type Provisioner struct {
	tiers      TierResolver
	locator    InstanceLocator
	prober     ReachabilityProber
	executor   RemoteExecutor
	sink       eventlog.Sink
	credential model.Credential
	logger     zerolog.Logger
}

// NewProvisioner creates a new Provisioner activity struct. credential
// carries the deploy key path and user; the password is added per call.
func NewProvisioner(tiers TierResolver, loc InstanceLocator, prober ReachabilityProber, executor RemoteExecutor, sink eventlog.Sink, credential model.Credential, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		tiers:      tiers,
		locator:    loc,
		prober:     prober,
		executor:   executor,
		sink:       sink,
		credential: credential,
		logger:     logger.With().Str("component", "provisioner").Logger(),
	}
}

// ResolveTier reports which tier, if any, a product belongs to.
func (a *Provisioner) ResolveTier(ctx context.Context, ref model.ProductRef) (ResolveTierResult, error) {
	t, ok := a.tiers.Resolve(ref)
	if !ok {
		return ResolveTierResult{}, nil
	}
	return ResolveTierResult{Applicable: true, Tier: t}, nil
}

// LocateInstance resolves the address of the event's instance. An
// unresolved address is a result, not an error.
func (a *Provisioner) LocateInstance(ctx context.Context, event model.LifecycleEvent) (LocateInstanceResult, error) {
	loc, err := a.locator.Locate(ctx, event)
	if errors.Is(err, locator.ErrAddressUnresolved) {
		return LocateInstanceResult{}, nil
	}
	if err != nil {
		return LocateInstanceResult{}, fmt.Errorf("locate instance for service %d: %w", event.ServiceID, err)
	}
	return LocateInstanceResult{Resolved: true, Address: loc.Address, Source: loc.Source}, nil
}

// WaitReachable polls the instance until it accepts TCP connections or
// MaxWait elapses. It heartbeats after every attempt.
func (a *Provisioner) WaitReachable(ctx context.Context, params WaitReachableParams) (probe.Result, error) {
	if params.Address == "" {
		return probe.Result{}, temporal.NewNonRetryableApplicationError("address is required", "INVALID_PARAMS", nil)
	}

	res := a.prober.WaitUntilReachable(ctx, probe.Params{
		Address:  params.Address,
		Port:     params.Port,
		MaxWait:  params.MaxWait,
		Interval: params.Interval,
		OnAttempt: func(att probe.Attempt) {
			result := "ok"
			if att.Err != nil {
				result = "refused"
			}
			metrics.ProbeAttempts.WithLabelValues(result).Inc()
			activity.RecordHeartbeat(ctx, att.Number)
		},
	})

	if res.Ready {
		metrics.ProbeWaits.WithLabelValues("ready").Inc()
		metrics.ProbeWaitSeconds.Observe(res.Elapsed.Seconds())
	} else {
		metrics.ProbeWaits.WithLabelValues("timeout").Inc()
	}
	return res, nil
}

// ExecuteRemote runs one command on the instance with the process
// credential and the event password. Transport failures are returned in
// the result so the workflow can record them and decide how to proceed.
func (a *Provisioner) ExecuteRemote(ctx context.Context, params ExecuteRemoteParams) (ExecuteRemoteResult, error) {
	if params.Address == "" || params.Command == "" {
		return ExecuteRemoteResult{}, temporal.NewNonRetryableApplicationError("address and command are required", "INVALID_PARAMS", nil)
	}

	cred := a.credential.WithPassword(params.Password)
	res := a.executor.BestEffort(ctx, params.Address, cred, params.Command, params.Timeout)

	out := ExecuteRemoteResult{
		Output:   res.Text(),
		ExitCode: res.ExitCode,
		Auth:     res.Auth,
	}
	switch {
	case res.Failed():
		out.Output = res.Output
		out.TransportError = res.Err.Error()
		metrics.RemoteExecutions.WithLabelValues(res.Auth, "transport_error").Inc()
	case res.ExitCode != 0:
		metrics.RemoteExecutions.WithLabelValues(res.Auth, "nonzero").Inc()
	default:
		metrics.RemoteExecutions.WithLabelValues(res.Auth, "ok").Inc()
	}

	if params.Kind == model.EventSuspended || params.Kind == model.EventUnsuspended {
		outcome := model.OutcomeCommandSent
		if out.Failed() {
			outcome = model.OutcomeCommandFailed
		}
		metrics.LifecycleCommands.WithLabelValues(string(params.Kind), outcome).Inc()
	}
	return out, nil
}

// RecordEvent appends one operator-facing record for a service.
func (a *Provisioner) RecordEvent(ctx context.Context, params RecordEventParams) error {
	a.sink.Record(ctx, params.ServiceID, params.Message)
	return nil
}

// DumpEvent writes the raw event payload to the sink in chunks and returns
// how many were written.
func (a *Provisioner) DumpEvent(ctx context.Context, raw []byte) (int, error) {
	return eventlog.Dump(ctx, a.sink, raw), nil
}
