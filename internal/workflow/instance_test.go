package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/rservers/RightClaw-Build/internal/activity"
	"github.com/rservers/RightClaw-Build/internal/locator"
	"github.com/rservers/RightClaw-Build/internal/metrics"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
	"github.com/rservers/RightClaw-Build/internal/remote"
	"github.com/rservers/RightClaw-Build/internal/tier"
)

const (
	proScript = "/opt/rightservers/scripts/upgrade-pro.sh"
	stopCmd   = "openclaw gateway stop 2>/dev/null || true"
	startCmd  = "openclaw gateway start 2>/dev/null || true"
)

var testTiers = []model.Tier{
	{ProductID: 155, Name: "Rightclaw Basic", DisplayName: "Basic"},
	{ProductID: 156, Name: "Rightclaw Pro", DisplayName: "Pro", ConfigScript: proScript},
	{ProductID: 157, Name: "Rightclaw Enterprise", DisplayName: "Enterprise", ConfigScript: "/opt/rightservers/scripts/upgrade-enterprise.sh"},
}

// ---------- Fakes ----------

type fakeLocator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeLocator) Locate(_ context.Context, ev model.LifecycleEvent) (locator.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if ev.DedicatedIP != "" {
		return locator.Location{Address: ev.DedicatedIP, Source: locator.SourcePayload}, nil
	}
	return locator.Location{}, locator.ErrAddressUnresolved
}

// fakeProber simulates a host that answers on attempt readyOn (0 = never).
type fakeProber struct {
	mu      sync.Mutex
	calls   int
	readyOn int
}

func (f *fakeProber) WaitUntilReachable(_ context.Context, p probe.Params) probe.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	maxAttempts := int(p.MaxWait / p.Interval)
	for i := 1; i <= maxAttempts; i++ {
		if i == f.readyOn {
			if p.OnAttempt != nil {
				p.OnAttempt(probe.Attempt{Number: i})
			}
			return probe.Result{Ready: true, Attempts: i, Elapsed: time.Duration(i-1) * p.Interval}
		}
		if p.OnAttempt != nil {
			p.OnAttempt(probe.Attempt{Number: i, Err: errors.New("connection refused")})
		}
	}
	return probe.Result{Ready: false, Attempts: maxAttempts, Elapsed: p.MaxWait}
}

type execReply struct {
	res remote.Result
	err error
}

// fakeExecutor answers per command and records every call.
type fakeExecutor struct {
	mu       sync.Mutex
	replies  map[string]execReply
	commands []string
	creds    []model.Credential
}

func (f *fakeExecutor) BestEffort(_ context.Context, address string, cred model.Credential, command string, _ time.Duration) remote.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	f.creds = append(f.creds, cred)
	r := f.replies[command]
	return remote.Outcome{Result: r.res, Err: r.err}
}

type memSink struct {
	mu       sync.Mutex
	messages []string
	services []int
}

func (m *memSink) Record(_ context.Context, serviceID int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	m.services = append(m.services, serviceID)
}

type harness struct {
	locator  *fakeLocator
	prober   *fakeProber
	executor *fakeExecutor
	sink     *memSink
}

func newHarness(readyOn int) *harness {
	return &harness{
		locator:  &fakeLocator{},
		prober:   &fakeProber{readyOn: readyOn},
		executor: &fakeExecutor{replies: map[string]execReply{}},
		sink:     &memSink{},
	}
}

func (h *harness) register(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(activity.NewProvisioner(
		tier.NewResolver(testTiers, tier.DefaultProductGroup),
		h.locator, h.prober, h.executor, h.sink,
		model.Credential{KeyPath: "/root/.ssh/rightservers_deploy", User: "root"},
		zerolog.Nop(),
	))
}

func transportFailure(reason string) execReply {
	return execReply{
		res: remote.Result{Auth: remote.AuthPassword},
		err: &remote.TransportError{Address: "10.0.0.5", Auth: remote.AuthPassword, Reason: reason},
	}
}

// ---------- ProvisionInstanceWorkflow ----------

type ProvisionInstanceWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ProvisionInstanceWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
}

func (s *ProvisionInstanceWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *ProvisionInstanceWorkflowTestSuite) run(h *harness, ev model.LifecycleEvent) model.ProvisionResult {
	h.register(s.env)
	s.env.ExecuteWorkflow(ProvisionInstanceWorkflow, model.EventRequest{Event: ev})
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var res model.ProvisionResult
	s.Require().NoError(s.env.GetWorkflowResult(&res))
	return res
}

func (s *ProvisionInstanceWorkflowTestSuite) TestHappyPath_ReachableOnThirdAttempt() {
	h := newHarness(3)
	h.executor.replies[proScript] = execReply{res: remote.Result{Output: "pro features enabled", Auth: remote.AuthPassword}}
	h.executor.replies[model.DefaultVerifyCommand] = execReply{res: remote.Result{Output: "Gateway: running", Auth: remote.AuthPassword}}

	res := s.run(h, model.LifecycleEvent{
		Kind:        model.EventCreated,
		ServiceID:   42,
		ProductID:   156,
		DedicatedIP: "10.0.0.5",
		Password:    "x",
	})

	s.Equal(model.ProvisionResult{Outcome: model.OutcomeCompleted, Tier: "Pro", Address: "10.0.0.5", Attempts: 3}, res)
	s.Equal([]string{
		"OpenClaw post-provisioning started | Product: product #156 | Tier: Pro",
		"Waiting for VM at 10.0.0.5 to come online (max 300s, polling every 15s)...",
		"VM 10.0.0.5 is online after 30s (attempt #3)",
		"Tier script " + proScript + " result: pro features enabled",
		"OpenClaw status check: Gateway: running",
		"Post-provisioning complete for service #42",
	}, h.sink.messages)
	for _, id := range h.sink.services {
		s.Equal(42, id)
	}
	s.Equal([]string{proScript, model.DefaultVerifyCommand}, h.executor.commands)
	s.Equal("x", h.executor.creds[0].Password)
	s.Equal(1, h.prober.calls)
}

func (s *ProvisionInstanceWorkflowTestSuite) TestBasicTier_SkipsScriptButVerifies() {
	h := newHarness(1)
	h.executor.replies[model.DefaultVerifyCommand] = execReply{res: remote.Result{Auth: remote.AuthKey}}

	res := s.run(h, model.LifecycleEvent{ServiceID: 7, OptionName: "Rightclaw Basic", DedicatedIP: "10.0.0.8"})

	s.Equal(model.OutcomeCompleted, res.Outcome)
	s.Equal([]string{model.DefaultVerifyCommand}, h.executor.commands)
	s.Contains(h.sink.messages, "Basic tier, no configuration script needed.")
	s.Contains(h.sink.messages, "OpenClaw status check: no output")
}

func (s *ProvisionInstanceWorkflowTestSuite) TestNotApplicable_NoRecordsNoCalls() {
	h := newHarness(1)

	res := s.run(h, model.LifecycleEvent{ServiceID: 43, ProductID: 999, DedicatedIP: "10.0.0.5", Password: "x"})

	s.Equal(model.OutcomeNotApplicable, res.Outcome)
	s.Empty(h.sink.messages)
	s.Zero(h.locator.calls)
	s.Zero(h.prober.calls)
	s.Empty(h.executor.commands)
}

func (s *ProvisionInstanceWorkflowTestSuite) TestAddressUnresolved_StopsBeforeProbe() {
	h := newHarness(1)

	res := s.run(h, model.LifecycleEvent{ServiceID: 44, ProductID: 156, Password: "x"})

	s.Equal(model.OutcomeAddressUnresolved, res.Outcome)
	s.Equal(1, h.locator.calls)
	s.Zero(h.prober.calls)
	s.Empty(h.executor.commands)
	s.Equal([]string{
		"OpenClaw post-provisioning started | Product: product #156 | Tier: Pro",
		"ERROR: Could not determine VM IP address. Manual tier activation required.",
	}, h.sink.messages)
}

func (s *ProvisionInstanceWorkflowTestSuite) TestReachabilityTimeout_NoRemoteCalls() {
	h := newHarness(0)

	res := s.run(h, model.LifecycleEvent{ServiceID: 45, ProductID: 157, DedicatedIP: "10.0.0.9"})

	s.Equal(model.OutcomeReachabilityTimeout, res.Outcome)
	s.Equal(20, res.Attempts)
	s.Empty(h.executor.commands)
	s.Equal("ERROR: VM at 10.0.0.9 did not come online within 300s. Manual tier activation required.",
		h.sink.messages[len(h.sink.messages)-1])
}

func (s *ProvisionInstanceWorkflowTestSuite) TestApplyTransportFailure_StillVerifies() {
	h := newHarness(1)
	h.executor.replies[proScript] = transportFailure("password rejected")
	h.executor.replies[model.DefaultVerifyCommand] = transportFailure("password rejected")

	res := s.run(h, model.LifecycleEvent{ServiceID: 46, ProductID: 156, DedicatedIP: "10.0.0.5", Password: "wrong"})

	s.Equal(model.OutcomeCompleted, res.Outcome)
	s.Equal([]string{proScript, model.DefaultVerifyCommand}, h.executor.commands)
	s.Contains(h.sink.messages, "Tier script "+proScript+" failed: ssh 10.0.0.5 (password auth): password rejected")
	s.Contains(h.sink.messages, "OpenClaw status check failed: ssh 10.0.0.5 (password auth): password rejected")
	s.Equal("Post-provisioning complete for service #46", h.sink.messages[len(h.sink.messages)-1])
}

func (s *ProvisionInstanceWorkflowTestSuite) TestApplyActivityError_FoldedIntoRecord() {
	h := newHarness(1)
	h.register(s.env)
	s.env.OnActivity("ExecuteRemote", mock.Anything, mock.MatchedBy(func(p activity.ExecuteRemoteParams) bool {
		return p.Command == proScript
	})).Return(activity.ExecuteRemoteResult{}, errors.New("worker lost"))
	s.env.OnActivity("ExecuteRemote", mock.Anything, mock.MatchedBy(func(p activity.ExecuteRemoteParams) bool {
		return p.Command == model.DefaultVerifyCommand && p.Address == "10.0.0.5" && p.Password == "x"
	})).Return(activity.ExecuteRemoteResult{Output: "Gateway: running"}, nil)

	s.env.ExecuteWorkflow(ProvisionInstanceWorkflow, model.EventRequest{Event: model.LifecycleEvent{ServiceID: 47, ProductID: 156, DedicatedIP: "10.0.0.5", Password: "x"}})
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var res model.ProvisionResult
	s.Require().NoError(s.env.GetWorkflowResult(&res))

	s.Equal(model.OutcomeCompleted, res.Outcome)
	s.Contains(h.sink.messages, "OpenClaw status check: Gateway: running")
}

func (s *ProvisionInstanceWorkflowTestSuite) TestDumpEvent_WhenEnabled() {
	h := newHarness(1)
	h.register(s.env)

	s.env.ExecuteWorkflow(ProvisionInstanceWorkflow, model.EventRequest{
		Event:    model.LifecycleEvent{ServiceID: 48, ProductID: 999, Raw: []byte(`{"serviceid":48,"password":"x"}`)},
		Settings: model.Settings{DumpEvent: true},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	s.Require().Len(h.sink.messages, 1)
	s.Contains(h.sink.messages[0], "RS PARAMS [0]: ")
	s.Equal(0, h.sink.services[0])
}

func TestProvisionInstanceWorkflow(t *testing.T) {
	suite.Run(t, new(ProvisionInstanceWorkflowTestSuite))
}

// ---------- Suspend / Unsuspend ----------

type LifecycleWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func (s *LifecycleWorkflowTestSuite) runLifecycle(h *harness, wf any, ev model.LifecycleEvent) model.LifecycleResult {
	env := s.NewTestWorkflowEnvironment()
	h.register(env)
	env.ExecuteWorkflow(wf, model.EventRequest{Event: ev})
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var res model.LifecycleResult
	s.Require().NoError(env.GetWorkflowResult(&res))
	return res
}

func (s *LifecycleWorkflowTestSuite) TestSuspendThenUnsuspend_OneCommandEach() {
	h := newHarness(1)
	h.executor.replies[stopCmd] = transportFailure("connection or authentication failed")
	h.executor.replies[startCmd] = execReply{res: remote.Result{Auth: remote.AuthKey}}
	ev := model.LifecycleEvent{ServiceID: 42, ProductName: "Rightclaw Pro", DedicatedIP: "10.0.0.5", Password: "x"}
	stopFailed := metrics.LifecycleCommands.WithLabelValues("suspended", model.OutcomeCommandFailed)
	startSent := metrics.LifecycleCommands.WithLabelValues("unsuspended", model.OutcomeCommandSent)
	stopFailedBefore, startSentBefore := testutil.ToFloat64(stopFailed), testutil.ToFloat64(startSent)

	suspended := s.runLifecycle(h, SuspendInstanceWorkflow, ev)
	s.Equal(model.OutcomeCommandFailed, suspended.Outcome)
	s.Equal([]string{stopCmd}, h.executor.commands)

	unsuspended := s.runLifecycle(h, UnsuspendInstanceWorkflow, ev)
	s.Equal(model.OutcomeCommandSent, unsuspended.Outcome)
	s.Equal(remote.NoOutput, unsuspended.Output)
	s.Equal([]string{stopCmd, startCmd}, h.executor.commands)

	s.Zero(h.prober.calls)
	s.Equal([]string{
		"OpenClaw gateway could not be stopped (suspended): ssh 10.0.0.5 (password auth): connection or authentication failed",
		"OpenClaw gateway started (unsuspended)",
	}, h.sink.messages)
	s.Equal(stopFailedBefore+1, testutil.ToFloat64(stopFailed))
	s.Equal(startSentBefore+1, testutil.ToFloat64(startSent))
}

func (s *LifecycleWorkflowTestSuite) TestSuspend_NotApplicable() {
	h := newHarness(1)

	res := s.runLifecycle(h, SuspendInstanceWorkflow, model.LifecycleEvent{ServiceID: 50, ProductName: "Shared Hosting", DedicatedIP: "10.0.0.5"})

	s.Equal(model.OutcomeNotApplicable, res.Outcome)
	s.Empty(h.executor.commands)
	s.Empty(h.sink.messages)
	s.Zero(h.locator.calls)
}

func (s *LifecycleWorkflowTestSuite) TestUnsuspend_AddressUnresolved() {
	h := newHarness(1)

	res := s.runLifecycle(h, UnsuspendInstanceWorkflow, model.LifecycleEvent{ServiceID: 51, ProductName: "Rightclaw Basic"})

	s.Equal(model.OutcomeAddressUnresolved, res.Outcome)
	s.Empty(h.executor.commands)
	s.Equal([]string{"ERROR: Could not determine VM IP address, OpenClaw gateway not started (unsuspended)."}, h.sink.messages)
}

func (s *LifecycleWorkflowTestSuite) TestSuspend_CustomCommand() {
	h := newHarness(1)
	env := s.NewTestWorkflowEnvironment()
	h.register(env)

	env.ExecuteWorkflow(SuspendInstanceWorkflow, model.EventRequest{
		Event:    model.LifecycleEvent{ServiceID: 52, ProductName: "Rightclaw Enterprise", DedicatedIP: "10.0.0.6"},
		Settings: model.Settings{SuspendCommand: "systemctl stop openclaw || true"},
	})
	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())
	s.Equal([]string{"systemctl stop openclaw || true"}, h.executor.commands)
}

func TestLifecycleWorkflows(t *testing.T) {
	suite.Run(t, new(LifecycleWorkflowTestSuite))
}
