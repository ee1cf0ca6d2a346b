package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/rservers/RightClaw-Build/internal/activity"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
)

// ProvisionInstanceWorkflow runs the post-provisioning sequence for a newly
// created instance: tier check, address lookup, boot wait, tier script and
// gateway status check. Every terminal state returns a nil error; operators
// learn about failures from the records written along the way.
func ProvisionInstanceWorkflow(ctx workflow.Context, req model.EventRequest) (model.ProvisionResult, error) {
	logger := workflow.GetLogger(ctx)
	ev := req.Event
	settings := req.Settings.WithDefaults()
	sid := ev.ServiceID

	if settings.DumpEvent && len(ev.Raw) > 0 {
		var chunks int
		if err := workflow.ExecuteActivity(shortActivityCtx(ctx), "DumpEvent", ev.Raw).Get(ctx, &chunks); err != nil {
			logger.Warn("dump event failed", "service_id", sid, "error", err)
		}
	}

	// TIER_CHECK
	var resolved activity.ResolveTierResult
	if err := workflow.ExecuteActivity(shortActivityCtx(ctx), "ResolveTier", ev.Ref()).Get(ctx, &resolved); err != nil {
		return model.ProvisionResult{}, err
	}
	if !resolved.Applicable {
		logger.Info("product is not a managed tier", "service_id", sid, "product_id", ev.ProductID)
		return model.ProvisionResult{Outcome: model.OutcomeNotApplicable}, nil
	}
	t := resolved.Tier
	result := model.ProvisionResult{Tier: t.Label()}

	record(ctx, sid, "OpenClaw post-provisioning started | Product: %s | Tier: %s", productLabel(ev), t.Label())

	// LOCATE_ADDRESS
	var loc activity.LocateInstanceResult
	if err := workflow.ExecuteActivity(shortActivityCtx(ctx), "LocateInstance", ev).Get(ctx, &loc); err != nil {
		return result, err
	}
	if !loc.Resolved {
		record(ctx, sid, "ERROR: Could not determine VM IP address. Manual tier activation required.")
		result.Outcome = model.OutcomeAddressUnresolved
		return result, nil
	}
	result.Address = loc.Address

	// WAIT_REACHABLE
	record(ctx, sid, "Waiting for VM at %s to come online (max %s, polling every %s)...",
		loc.Address, seconds(settings.BootMaxWait), seconds(settings.BootPollInterval))

	var reach probe.Result
	err := workflow.ExecuteActivity(probeActivityCtx(ctx, settings.BootMaxWait, settings.BootPollInterval), "WaitReachable", activity.WaitReachableParams{
		Address:  loc.Address,
		Port:     probe.DefaultPort,
		MaxWait:  settings.BootMaxWait,
		Interval: settings.BootPollInterval,
	}).Get(ctx, &reach)
	if err != nil {
		return result, err
	}
	result.Attempts = reach.Attempts
	if !reach.Ready {
		record(ctx, sid, "ERROR: VM at %s did not come online within %s. Manual tier activation required.",
			loc.Address, seconds(settings.BootMaxWait))
		result.Outcome = model.OutcomeReachabilityTimeout
		return result, nil
	}
	record(ctx, sid, "VM %s is online after %s (attempt #%d)", loc.Address, seconds(reach.Elapsed), reach.Attempts)

	// APPLY_TIER
	if t.HasScript() {
		res := runRemote(ctx, loc.Address, ev.Password, t.ConfigScript, "", settings)
		if res.Failed() {
			record(ctx, sid, "Tier script %s failed: %s", t.ConfigScript, res.TransportError)
		} else {
			record(ctx, sid, "Tier script %s result: %s", t.ConfigScript, res.Text())
		}
	} else {
		record(ctx, sid, "%s tier, no configuration script needed.", t.Label())
	}

	// VERIFY_SERVICE
	check := runRemote(ctx, loc.Address, ev.Password, settings.VerifyCommand, "", settings)
	if check.Failed() {
		record(ctx, sid, "OpenClaw status check failed: %s", check.TransportError)
	} else {
		record(ctx, sid, "OpenClaw status check: %s", check.Text())
	}

	record(ctx, sid, "Post-provisioning complete for service #%d", sid)
	result.Outcome = model.OutcomeCompleted
	return result, nil
}

// runRemote executes one command. An activity-level failure (worker lost,
// timeout) is folded into the result like a transport failure. kind is
// empty for provisioning commands.
func runRemote(ctx workflow.Context, address, password, command string, kind model.EventKind, settings model.Settings) activity.ExecuteRemoteResult {
	var res activity.ExecuteRemoteResult
	err := workflow.ExecuteActivity(remoteActivityCtx(ctx, settings.RemoteTimeout), "ExecuteRemote", activity.ExecuteRemoteParams{
		Address:  address,
		Password: password,
		Command:  command,
		Timeout:  settings.RemoteTimeout,
		Kind:     kind,
	}).Get(ctx, &res)
	if err != nil {
		return activity.ExecuteRemoteResult{TransportError: err.Error()}
	}
	return res
}

func productLabel(ev model.LifecycleEvent) string {
	if ref := ev.Ref(); ref.Name != "" {
		return ref.Name
	}
	if ev.ProductID != 0 {
		return fmt.Sprintf("product #%d", ev.ProductID)
	}
	return "unknown"
}
