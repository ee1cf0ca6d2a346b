package activity

import (
	"time"

	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/remote"
)

// ResolveTierResult is returned by ResolveTier.
type ResolveTierResult struct {
	Applicable bool       `json:"applicable"`
	Tier       model.Tier `json:"tier"`
}

// LocateInstanceResult is returned by LocateInstance.
type LocateInstanceResult struct {
	Resolved bool   `json:"resolved"`
	Address  string `json:"address,omitempty"`
	Source   string `json:"source,omitempty"`
}

// WaitReachableParams holds the parameters for WaitReachable.
type WaitReachableParams struct {
	Address  string        `json:"address"`
	Port     int           `json:"port,omitempty"`
	MaxWait  time.Duration `json:"max_wait"`
	Interval time.Duration `json:"interval"`
}

// ExecuteRemoteParams holds the parameters for ExecuteRemote.
type ExecuteRemoteParams struct {
	Address string `json:"address"`
	// Password is the event's root password, used only when the deploy
	// key is absent on the worker.
	Password string        `json:"password,omitempty"`
	Command  string        `json:"command"`
	Timeout  time.Duration `json:"timeout"`
	// Kind is set for suspend and unsuspend gateway commands so their
	// outcome is counted per event kind.
	Kind model.EventKind `json:"kind,omitempty"`
}

// ExecuteRemoteResult is returned by ExecuteRemote. TransportError is set
// when the command never ran to completion; ExitCode is informational.
type ExecuteRemoteResult struct {
	Output         string `json:"output"`
	ExitCode       int    `json:"exit_code"`
	Auth           string `json:"auth"`
	TransportError string `json:"transport_error,omitempty"`
}

// Failed reports whether the command failed at the transport level.
func (r ExecuteRemoteResult) Failed() bool { return r.TransportError != "" }

// Text is the captured output, or the no-output sentinel.
func (r ExecuteRemoteResult) Text() string {
	if r.Output == "" {
		return remote.NoOutput
	}
	return r.Output
}

// RecordEventParams holds the parameters for RecordEvent.
type RecordEventParams struct {
	ServiceID int    `json:"service_id"`
	Message   string `json:"message"`
}
