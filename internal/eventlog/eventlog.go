// Package eventlog delivers operator-facing provisioning records. Records
// are append-only and fire-and-forget: a sink that cannot deliver logs the
// failure and moves on.
package eventlog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Sink accepts records keyed by service id. A zero serviceID marks a record
// that is not tied to one service, such as a debug payload dump.
type Sink interface {
	Record(ctx context.Context, serviceID int, message string)
}

// Prefix is prepended to every service record sent to the billing activity
// log, so operators can filter by service.
func Prefix(serviceID int) string {
	return fmt.Sprintf("RightServers OpenClaw [Service #%d]: ", serviceID)
}

// Format returns message as it appears in the billing activity log.
func Format(serviceID int, message string) string {
	if serviceID == 0 {
		return message
	}
	return Prefix(serviceID) + message
}

// LoggerSink writes records to a zerolog logger.
type LoggerSink struct {
	logger zerolog.Logger
}

// NewLoggerSink creates a LoggerSink.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger.With().Str("component", "eventlog").Logger()}
}

func (s *LoggerSink) Record(_ context.Context, serviceID int, message string) {
	ev := s.logger.Info()
	if serviceID != 0 {
		ev = ev.Int("service_id", serviceID)
	}
	ev.Msg(message)
}

type multi []Sink

// Multi fans a record out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Record(ctx context.Context, serviceID int, message string) {
	for _, s := range m {
		s.Record(ctx, serviceID, message)
	}
}
