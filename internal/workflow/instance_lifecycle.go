package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/rservers/RightClaw-Build/internal/activity"
	"github.com/rservers/RightClaw-Build/internal/model"
)

type gatewayAction struct {
	kind    model.EventKind
	verb    string // past tense for records
	command func(model.Settings) string
}

var (
	suspendAction = gatewayAction{
		kind:    model.EventSuspended,
		verb:    "stopped",
		command: func(s model.Settings) string { return s.SuspendCommand },
	}
	unsuspendAction = gatewayAction{
		kind:    model.EventUnsuspended,
		verb:    "started",
		command: func(s model.Settings) string { return s.UnsuspendCommand },
	}
)

// SuspendInstanceWorkflow stops the OpenClaw gateway on a suspended
// instance. It sends exactly one best-effort command and never fails.
func SuspendInstanceWorkflow(ctx workflow.Context, req model.EventRequest) (model.LifecycleResult, error) {
	return runGatewayAction(ctx, req, suspendAction)
}

// UnsuspendInstanceWorkflow starts the OpenClaw gateway again after an
// unsuspend. Same contract as SuspendInstanceWorkflow.
func UnsuspendInstanceWorkflow(ctx workflow.Context, req model.EventRequest) (model.LifecycleResult, error) {
	return runGatewayAction(ctx, req, unsuspendAction)
}

func runGatewayAction(ctx workflow.Context, req model.EventRequest, action gatewayAction) (model.LifecycleResult, error) {
	logger := workflow.GetLogger(ctx)
	ev := req.Event
	settings := req.Settings.WithDefaults()
	sid := ev.ServiceID

	var resolved activity.ResolveTierResult
	if err := workflow.ExecuteActivity(shortActivityCtx(ctx), "ResolveTier", ev.Ref()).Get(ctx, &resolved); err != nil {
		logger.Warn("tier check failed, skipping gateway action", "service_id", sid, "error", err)
		return model.LifecycleResult{Outcome: model.OutcomeNotApplicable}, nil
	}
	if !resolved.Applicable {
		return model.LifecycleResult{Outcome: model.OutcomeNotApplicable}, nil
	}

	var loc activity.LocateInstanceResult
	err := workflow.ExecuteActivity(shortActivityCtx(ctx), "LocateInstance", ev).Get(ctx, &loc)
	if err != nil || !loc.Resolved {
		if err != nil {
			logger.Warn("locate instance failed", "service_id", sid, "error", err)
		}
		record(ctx, sid, "ERROR: Could not determine VM IP address, OpenClaw gateway not %s (%s).", action.verb, action.kind)
		return model.LifecycleResult{Outcome: model.OutcomeAddressUnresolved}, nil
	}

	res := runRemote(ctx, loc.Address, ev.Password, action.command(settings), action.kind, settings)
	if res.Failed() {
		record(ctx, sid, "OpenClaw gateway could not be %s (%s): %s", action.verb, action.kind, res.TransportError)
		return model.LifecycleResult{Outcome: model.OutcomeCommandFailed, Address: loc.Address}, nil
	}

	record(ctx, sid, "OpenClaw gateway %s (%s)", action.verb, action.kind)
	return model.LifecycleResult{Outcome: model.OutcomeCommandSent, Address: loc.Address, Output: res.Text()}, nil
}
