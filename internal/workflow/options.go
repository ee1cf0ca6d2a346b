package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/rservers/RightClaw-Build/internal/activity"
)

// Every activity runs at most once: a failed stage is recorded for the
// operator and never retried.
var noRetry = &temporal.RetryPolicy{MaximumAttempts: 1}

// shortActivityCtx is used for lookups and log records.
func shortActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         noRetry,
	})
}

// probeActivityCtx bounds WaitReachable by the boot deadline plus one
// attempt and expects a heartbeat at least every two intervals.
func probeActivityCtx(ctx workflow.Context, maxWait, interval time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: maxWait + interval + time.Minute,
		HeartbeatTimeout:    2*interval + 30*time.Second,
		RetryPolicy:         noRetry,
	})
}

// remoteActivityCtx bounds ExecuteRemote by the command timeout plus the
// SSH connect budget.
func remoteActivityCtx(ctx workflow.Context, commandTimeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: commandTimeout + time.Minute,
		RetryPolicy:         noRetry,
	})
}

// record appends a log record. Sink failures never change the outcome.
func record(ctx workflow.Context, serviceID int, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	err := workflow.ExecuteActivity(shortActivityCtx(ctx), "RecordEvent", activity.RecordEventParams{
		ServiceID: serviceID,
		Message:   msg,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("record event failed", "service_id", serviceID, "error", err)
	}
}

// seconds renders d the way operators read boot timings: whole seconds.
func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}
