package model

import (
	"fmt"
	"time"
)

// TaskQueue is the Temporal task queue the worker polls and the event API
// starts workflows on.
const TaskQueue = "rightclaw-tasks"

// Workflow type names registered by the worker.
const (
	ProvisionWorkflowName = "ProvisionInstanceWorkflow"
	SuspendWorkflowName   = "SuspendInstanceWorkflow"
	UnsuspendWorkflowName = "UnsuspendInstanceWorkflow"
)

// WorkflowFor returns the workflow type that handles kind.
func WorkflowFor(kind EventKind) string {
	switch kind {
	case EventSuspended:
		return SuspendWorkflowName
	case EventUnsuspended:
		return UnsuspendWorkflowName
	default:
		return ProvisionWorkflowName
	}
}

// WorkflowID names the workflow that handles one event kind for one
// service. A redelivered hook maps to the same ID as the run in flight.
func WorkflowID(kind EventKind, serviceID int) string {
	return fmt.Sprintf("%s-%d", kind, serviceID)
}

// ProvisionResult is returned by ProvisionInstanceWorkflow.
type ProvisionResult struct {
	Outcome  string `json:"outcome"`
	Tier     string `json:"tier,omitempty"`
	Address  string `json:"address,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// LifecycleResult is returned by the suspend and unsuspend workflows.
type LifecycleResult struct {
	Outcome string `json:"outcome"`
	Address string `json:"address,omitempty"`
	Output  string `json:"output,omitempty"`
}

// Defaults applied to zero Settings fields.
const (
	DefaultBootMaxWait      = 300 * time.Second
	DefaultBootPollInterval = 15 * time.Second
	DefaultRemoteTimeout    = 10 * time.Minute
	DefaultVerifyCommand    = `openclaw status 2>&1 | grep -E "Gateway|running" | head -3`
	DefaultSuspendCommand   = "openclaw gateway stop 2>/dev/null || true"
	DefaultUnsuspendCommand = "openclaw gateway start 2>/dev/null || true"
)

// Settings are the tunables a workflow run needs. They travel in the
// workflow input so a run replays with the values it started with.
type Settings struct {
	BootMaxWait      time.Duration `json:"boot_max_wait"`
	BootPollInterval time.Duration `json:"boot_poll_interval"`
	RemoteTimeout    time.Duration `json:"remote_timeout"`
	VerifyCommand    string        `json:"verify_command,omitempty"`
	SuspendCommand   string        `json:"suspend_command,omitempty"`
	UnsuspendCommand string        `json:"unsuspend_command,omitempty"`
	DumpEvent        bool          `json:"dump_event,omitempty"`
}

// WithDefaults fills every zero field.
func (s Settings) WithDefaults() Settings {
	if s.BootMaxWait <= 0 {
		s.BootMaxWait = DefaultBootMaxWait
	}
	if s.BootPollInterval <= 0 {
		s.BootPollInterval = DefaultBootPollInterval
	}
	if s.RemoteTimeout <= 0 {
		s.RemoteTimeout = DefaultRemoteTimeout
	}
	if s.VerifyCommand == "" {
		s.VerifyCommand = DefaultVerifyCommand
	}
	if s.SuspendCommand == "" {
		s.SuspendCommand = DefaultSuspendCommand
	}
	if s.UnsuspendCommand == "" {
		s.UnsuspendCommand = DefaultUnsuspendCommand
	}
	return s
}

// EventRequest is the input of every workflow.
type EventRequest struct {
	Event    LifecycleEvent `json:"event"`
	Settings Settings       `json:"settings"`
}
