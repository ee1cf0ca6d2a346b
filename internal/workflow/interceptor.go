package workflow

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/rservers/RightClaw-Build/internal/metrics"
)

// ActivityInterceptor times every activity and tags untyped activity errors
// with the activity name, so a failed WaitReachable shows up as
// "WaitReachable" in the Temporal UI instead of a generic ApplicationError.
type ActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (a *ActivityInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &activityInterceptor{next: next}
}

type activityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (a *activityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return a.next.Init(outbound)
}

func (a *activityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	start := time.Now()
	result, err := a.next.ExecuteActivity(ctx, in)
	return result, observeActivity(activity.GetInfo(ctx).ActivityType.Name, time.Since(start), err)
}

// observeActivity records the execution and returns err typed with name.
func observeActivity(name string, elapsed time.Duration, err error) error {
	if err == nil {
		metrics.ActivityDuration.WithLabelValues(name, "ok").Observe(elapsed.Seconds())
		return nil
	}
	metrics.ActivityDuration.WithLabelValues(name, "error").Observe(elapsed.Seconds())

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return err
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), name, err)
}
