package eventlog

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Execer is the subset of *pgxpool.Pool used by DBSink.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type dbEntry struct {
	ServiceID int
	Message   string
}

// DBSink is an async writer into the provisioning_log table. A single drain
// goroutine preserves per-process record order.
type DBSink struct {
	db     Execer
	logger zerolog.Logger
	ch     chan dbEntry
	done   chan struct{}
	once   sync.Once
}

// NewDBSink starts the drain goroutine. Call Close to flush it.
func NewDBSink(db Execer, logger zerolog.Logger) *DBSink {
	s := &DBSink{
		db:     db,
		logger: logger.With().Str("component", "eventlog-db").Logger(),
		ch:     make(chan dbEntry, 1024),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *DBSink) drain() {
	defer close(s.done)
	for entry := range s.ch {
		var serviceID *int
		if entry.ServiceID != 0 {
			id := entry.ServiceID
			serviceID = &id
		}
		_, err := s.db.Exec(
			// the caller's context may already be gone
			context.Background(),
			`INSERT INTO provisioning_log (service_id, message, created_at) VALUES ($1, $2, now())`,
			serviceID, entry.Message,
		)
		if err != nil {
			s.logger.Error().Err(err).Int("service_id", entry.ServiceID).Msg("failed to write provisioning log")
		}
	}
}

func (s *DBSink) Record(_ context.Context, serviceID int, message string) {
	select {
	case s.ch <- dbEntry{ServiceID: serviceID, Message: message}:
	default:
		s.logger.Warn().Int("service_id", serviceID).Msg("provisioning log buffer full, dropping entry")
	}
}

// Close stops accepting records and waits until queued ones are written.
// Record must not be called after Close.
func (s *DBSink) Close() {
	s.once.Do(func() { close(s.ch) })
	<-s.done
}
