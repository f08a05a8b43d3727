package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

// Defaults for a connect scan.
const (
	DefaultTimeout     = 200 * time.Millisecond
	DefaultConcurrency = 100
)

// ErrResourceExhausted is returned when the process runs out of file
// descriptors. It is the only dial failure that aborts a scan; every other
// failure means the port is closed.
var ErrResourceExhausted = errors.New("local resource exhaustion")

// Scanner performs TCP connect scans with a bounded number of attempts in
// flight. Each port is attempted exactly once and never retried.
type Scanner struct {
	dialer      proxy.ContextDialer
	timeout     time.Duration
	concurrency int
	observer    func(port uint16)
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithTimeout sets the per-attempt connect timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scanner) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithConcurrency sets the maximum number of connection attempts in flight.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDialer sets the dialer used for connection attempts.
func WithDialer(d proxy.ContextDialer) Option {
	return func(s *Scanner) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithObserver registers a callback invoked once for each open port as soon
// as it is found. Calls are serialized.
func WithObserver(fn func(port uint16)) Option {
	return func(s *Scanner) {
		s.observer = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner with a 200ms timeout, 100 attempts in flight and
// direct connections.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		dialer:      &net.Dialer{},
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Scan attempts a TCP connection to every port of r on host and returns the
// ports that accepted, in the order they were found.
//
// Each attempt has its own deadline, so a slow port never delays another's
// clock. A successful connection is closed right away without exchanging
// data.
func (s *Scanner) Scan(ctx context.Context, host string, r model.PortRange) ([]uint16, error) {
	s.logger.Debug("starting port scan",
		"host", host,
		"range", r.String(),
		"timeout", s.timeout,
		"concurrency", s.concurrency,
	)
	startTime := time.Now()

	var (
		mu   sync.Mutex
		open = make([]uint16, 0)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	// int loop so that End == 65535 terminates.
	for p := int(r.Start); p <= int(r.End); p++ {
		if gctx.Err() != nil {
			break
		}
		port := uint16(p)

		g.Go(func() error {
			ok, err := s.probe(gctx, host, port)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			open = append(open, port)
			if s.observer != nil {
				s.observer(port)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return open, err
	}

	s.logger.Debug("port scan complete",
		"host", host,
		"open", len(open),
		"elapsed", time.Since(startTime),
	)

	return open, nil
}

// probe reports whether port accepted a connection within the timeout.
func (s *Scanner) probe(ctx context.Context, host string, port uint16) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		if isResourceExhaustion(err) {
			return false, fmt.Errorf("%w: port %d: %v", ErrResourceExhausted, port, err)
		}
		return false, nil
	}
	conn.Close()

	return true, nil
}

func isResourceExhaustion(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}
