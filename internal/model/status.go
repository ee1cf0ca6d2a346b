package model

// Workflow outcome constants. Every terminal state of an invocation maps to
// exactly one of these; operators read them from the workflow result.
const (
	OutcomeNotApplicable       = "not_applicable"
	OutcomeAddressUnresolved   = "address_unresolved"
	OutcomeReachabilityTimeout = "reachability_timeout"
	OutcomeCompleted           = "completed"
	OutcomeCommandSent         = "command_sent"
	OutcomeCommandFailed       = "command_failed"
)
