// Package api serves the billing hook endpoint. Each accepted lifecycle
// event (created, suspended, unsuspended) for an OpenClaw product starts a
// Temporal workflow on the worker's task queue.
package api
