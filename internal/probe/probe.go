// Package probe waits for a freshly booted instance to accept TCP
// connections. Boot time is unpredictable, so the loop is bounded by a wall
// clock deadline rather than an attempt count.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPort is the SSH port every probe targets unless told otherwise.
	DefaultPort = 22
	// DefaultInterval replaces a zero or negative Params.Interval.
	DefaultInterval    = 15 * time.Second
	defaultDialTimeout = 5 * time.Second
)

// Dialer opens a single connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Attempt describes one finished connection attempt.
type Attempt struct {
	Number  int
	Elapsed time.Duration
	Err     error
}

// Params describes one wait.
type Params struct {
	Address  string
	Port     int
	MaxWait  time.Duration
	Interval time.Duration
	// OnAttempt is called after every attempt, successful or not.
	OnAttempt func(Attempt)
}

// Result is the outcome of a wait. Ready=false is an ordinary outcome, not
// an error: the caller decides what a timeout means.
type Result struct {
	Ready     bool          `json:"ready"`
	Elapsed   time.Duration `json:"elapsed"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
}

// Prober polls a host:port until it accepts a connection.
type Prober struct {
	dialer      Dialer
	dialTimeout time.Duration
	logger      zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option {
	return func(p *Prober) { p.dialer = d }
}

// WithDialTimeout sets the per-attempt connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// New creates a Prober with a 5s per-attempt connect timeout.
func New(logger zerolog.Logger, opts ...Option) *Prober {
	p := &Prober{
		dialer:      &net.Dialer{},
		dialTimeout: defaultDialTimeout,
		logger:      logger.With().Str("component", "probe").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WaitUntilReachable dials params.Address until a connection succeeds or
// MaxWait has passed since the first attempt. No attempt starts after the
// deadline. Context cancellation ends the wait early with Ready=false.
func (p *Prober) WaitUntilReachable(ctx context.Context, params Params) Result {
	port := params.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(params.Address, strconv.Itoa(port))
	if params.Interval <= 0 {
		params.Interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(params.MaxWait)
	var res Result

	for time.Now().Before(deadline) {
		res.Attempts++
		err := p.dialOnce(ctx, addr)
		elapsed := time.Since(start)

		if params.OnAttempt != nil {
			params.OnAttempt(Attempt{Number: res.Attempts, Elapsed: elapsed, Err: err})
		}

		if err == nil {
			res.Ready = true
			res.Elapsed = elapsed
			res.LastError = ""
			p.logger.Info().
				Str("address", addr).
				Int("attempt", res.Attempts).
				Dur("elapsed", elapsed).
				Msgf("VM %s is online after %s (attempt #%d)", params.Address, elapsed.Round(time.Second), res.Attempts)
			return res
		}

		res.LastError = err.Error()
		p.logger.Info().
			Str("address", addr).
			Int("attempt", res.Attempts).
			Err(err).
			Dur("retry_in", params.Interval).
			Msgf("VM %s not ready yet (attempt #%d), retrying in %s", params.Address, res.Attempts, params.Interval)

		wait := params.Interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if !sleep(ctx, wait) {
			res.Elapsed = time.Since(start)
			if res.LastError == "" {
				res.LastError = ctx.Err().Error()
			}
			return res
		}
	}

	res.Elapsed = time.Since(start)
	p.logger.Warn().
		Str("address", addr).
		Int("attempts", res.Attempts).
		Dur("elapsed", res.Elapsed).
		Msg("VM did not come online before the deadline")
	return res
}

func (p *Prober) dialOnce(ctx context.Context, addr string) error {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
