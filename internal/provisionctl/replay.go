package provisionctl

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/rservers/RightClaw-Build/internal/api/request"
	"github.com/rservers/RightClaw-Build/internal/model"
)

// LoadEvent reads a hook payload from path and maps it to the event the
// workflows consume. The raw payload is attached when settings ask for a
// dump.
func LoadEvent(path string, kind model.EventKind, settings model.Settings) (model.LifecycleEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.LifecycleEvent{}, fmt.Errorf("read event file: %w", err)
	}
	var req request.LifecycleEvent
	if err := request.Parse(data, &req); err != nil {
		return model.LifecycleEvent{}, fmt.Errorf("parse event file %s: %w", path, err)
	}
	if !settings.DumpEvent {
		data = nil
	}
	return req.ToModel(kind, data), nil
}

// ReplayResult is what a replayed workflow returned. Only one of Provision
// and Lifecycle is set, matching the event kind.
type ReplayResult struct {
	WorkflowID string
	RunID      string
	Provision  *model.ProvisionResult
	Lifecycle  *model.LifecycleResult
}

// Outcome returns the terminal outcome, or "" if the workflow was not
// awaited.
func (r ReplayResult) Outcome() string {
	switch {
	case r.Provision != nil:
		return r.Provision.Outcome
	case r.Lifecycle != nil:
		return r.Lifecycle.Outcome
	}
	return ""
}

// Replay starts the workflow for ev on the worker's task queue and, when
// wait is set, blocks until it finishes.
func Replay(ctx context.Context, tc temporalclient.Client, ev model.LifecycleEvent, settings model.Settings, wait bool) (ReplayResult, error) {
	name := model.WorkflowFor(ev.Kind)
	run, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("replay-%s-%d-%s", ev.Kind, ev.ServiceID, uuid.NewString()),
		TaskQueue: model.TaskQueue,
	}, name, model.EventRequest{Event: ev, Settings: settings.WithDefaults()})
	if err != nil {
		return ReplayResult{}, fmt.Errorf("start %s: %w", name, err)
	}

	res := ReplayResult{WorkflowID: run.GetID(), RunID: run.GetRunID()}
	if !wait {
		return res, nil
	}

	if ev.Kind == model.EventCreated {
		var out model.ProvisionResult
		if err := run.Get(ctx, &out); err != nil {
			return res, fmt.Errorf("await %s: %w", res.WorkflowID, err)
		}
		res.Provision = &out
		return res, nil
	}
	var out model.LifecycleResult
	if err := run.Get(ctx, &out); err != nil {
		return res, fmt.Errorf("await %s: %w", res.WorkflowID, err)
	}
	res.Lifecycle = &out
	return res, nil
}
