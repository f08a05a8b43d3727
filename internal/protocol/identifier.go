package protocol

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds every connect, write and read of a probe.
const DefaultTimeout = 200 * time.Millisecond

// DefaultUserAgent is sent by the HTTP probe.
const DefaultUserAgent = "PortScanner/1.0"

// errNoData is returned by readOnce when the peer sent nothing.
var errNoData = errors.New("no data received")

// Result is the outcome of a single probe: either a hit carrying the
// identified banner, or a miss. A miss is never an error.
type Result struct {
	info *model.BannerInfo
}

// Hit wraps a successful identification.
func Hit(info *model.BannerInfo) Result {
	return Result{info: info}
}

// Miss is a probe that learned nothing.
func Miss() Result {
	return Result{}
}

// Banner returns the identified banner and true for a hit.
func (r Result) Banner() (*model.BannerInfo, bool) {
	return r.info, r.info != nil
}

// Probe tries to identify the service on one port. Every call opens its
// own connection, and timeouts or I/O failures yield Miss.
type Probe interface {
	// Name returns a short label such as "http" used in logs.
	Name() string

	// Probe connects to host:port and attempts identification.
	Probe(ctx context.Context, host string, port uint16) Result
}

// base holds the settings shared by every probe.
type base struct {
	dialer    proxy.ContextDialer
	timeout   time.Duration
	userAgent string
}

// Option configures a probe.
type Option func(*base)

// WithTimeout sets the bound for each connect, write and read.
func WithTimeout(timeout time.Duration) Option {
	return func(b *base) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent sent by the HTTP probe.
func WithUserAgent(ua string) Option {
	return func(b *base) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

func newBase(dialer proxy.ContextDialer, opts []Option) base {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	b := base{
		dialer:    dialer,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// session is one probe connection. Every read and write re-arms the
// deadline, so each operation gets the full timeout.
type session struct {
	conn    net.Conn
	timeout time.Duration
}

func (b base) connect(ctx context.Context, host string, port uint16) (*session, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	conn, err := b.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, err
	}
	return &session{conn: conn, timeout: b.timeout}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

// send writes p in full within the timeout.
func (s *session) send(p string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(p))
	return err
}

// readOnce performs a single read of at most size bytes. Invalid UTF-8 is
// replaced rather than rejected.
func (s *session) readOnce(size int) (string, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", err
	}
	buf := make([]byte, size)
	n, err := s.conn.Read(buf)
	if n > 0 {
		return strings.ToValidUTF8(string(buf[:n]), "\uFFFD"), nil
	}
	if err != nil {
		return "", err
	}
	return "", errNoData
}

// splitLines splits on "\n", strips a trailing "\r" from each line and
// drops the empty element after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Identifier runs probes in a fixed order and stops at the first hit.
type Identifier struct {
	probes []Probe
	logger *slog.Logger
}

// IdentifierOption configures an Identifier.
type IdentifierOption func(*Identifier)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) IdentifierOption {
	return func(i *Identifier) {
		i.logger = logger
	}
}

// WithProbes replaces the probe chain.
func WithProbes(probes ...Probe) IdentifierOption {
	return func(i *Identifier) {
		i.probes = probes
	}
}

// NewIdentifier creates an Identifier with the default chain:
// HTTP, FTP, SMTP, then the generic fallback.
func NewIdentifier(dialer proxy.ContextDialer, probeOpts []Option, opts ...IdentifierOption) *Identifier {
	i := &Identifier{
		probes: DefaultProbes(dialer, probeOpts...),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// DefaultProbes returns the standard probe chain in order.
func DefaultProbes(dialer proxy.ContextDialer, opts ...Option) []Probe {
	return []Probe{
		NewHTTPProbe(dialer, opts...),
		NewFTPProbe(dialer, opts...),
		NewSMTPProbe(dialer, opts...),
		NewGenericProbe(dialer, opts...),
	}
}

// Probes returns the chain in the order it is tried.
func (i *Identifier) Probes() []Probe {
	return i.probes
}

// Identify returns the banner from the first probe that hits, or nil when
// every probe misses.
func (i *Identifier) Identify(ctx context.Context, host string, port uint16) *model.BannerInfo {
	for _, p := range i.probes {
		info, ok := p.Probe(ctx, host, port).Banner()
		if !ok {
			i.logger.Debug("probe missed", "probe", p.Name(), "port", port)
			continue
		}
		if info.Version == nil {
			info.Version = sshVersion(info.Banner)
		}
		i.logger.Debug("probe hit",
			"probe", p.Name(),
			"port", port,
			"protocol", info.Protocol,
			"banner", info.Banner,
		)
		return info
	}
	return nil
}
