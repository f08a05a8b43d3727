package vapt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

// Default timeouts for the active web checks.
const (
	DefaultHTTPTimeout = 10 * time.Second
	DefaultTLSTimeout  = 5 * time.Second
)

// DefaultUserAgent identifies the web check in server logs.
const DefaultUserAgent = "PortScanner/1.0"

// maxBodyDrain caps how much of a response body is read before closing.
const maxBodyDrain = 64 << 10

// Classifier turns an open port and its banner into a VaptResult.
type Classifier struct {
	services   ServiceLookup
	client     *http.Client
	dialer     proxy.ContextDialer
	tlsTimeout time.Duration
	tlsPorts   []uint16
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithHTTPClient sets the client used for the web check.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Classifier) {
		if client != nil {
			c.client = client
		}
	}
}

// WithDialer sets the dialer used for the TLS reachability check.
func WithDialer(dialer proxy.ContextDialer) Option {
	return func(c *Classifier) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithTLSTimeout bounds the TLS reachability check.
func WithTLSTimeout(timeout time.Duration) Option {
	return func(c *Classifier) {
		if timeout > 0 {
			c.tlsTimeout = timeout
		}
	}
}

// WithTLSPorts replaces the ports that are fetched over https and get the
// TLS check. The default is 443 only.
func WithTLSPorts(ports ...uint16) Option {
	return func(c *Classifier) {
		c.tlsPorts = slices.Clone(ports)
	}
}

// WithUserAgent sets the User-Agent of the web check.
func WithUserAgent(ua string) Option {
	return func(c *Classifier) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Classifier that resolves service names through services.
func New(services ServiceLookup, opts ...Option) *Classifier {
	c := &Classifier{
		services:   services,
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
		dialer:     &net.Dialer{},
		tlsTimeout: DefaultTLSTimeout,
		tlsPorts:   []uint16{443},
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assesses one open port. banner is the captured banner text, or
// empty when none was captured. Web services are contacted over HTTP(S);
// every other service is judged from its name alone. Classify never fails:
// an unreachable web service becomes a finding.
func (c *Classifier) Classify(ctx context.Context, host string, port uint16, banner string) model.VaptResult {
	service := ResolveService(c.services, port, banner)
	result := model.VaptResult{
		Port:            port,
		Service:         service,
		Vulnerabilities: make([]model.Vulnerability, 0),
		Recommendations: make([]string, 0),
	}

	switch service {
	case ServiceHTTP, ServiceHTTPS:
		c.assessWeb(ctx, host, port, &result)
	default:
		r, ok := serviceRules[service]
		if !ok {
			r = genericRule(service, port)
		}
		result.Vulnerabilities = append(result.Vulnerabilities, r.finding)
		result.Recommendations = model.AppendUnique(result.Recommendations, r.recommendations...)
	}

	result.RiskLevel = model.AggregateRisk(result.Vulnerabilities)
	c.logger.Debug("port classified",
		"port", port,
		"service", service,
		"findings", len(result.Vulnerabilities),
		"risk", result.RiskLevel.String())
	return result
}

// ClassifyAll classifies ports in the given order. banners may lack
// entries for ports without a captured banner.
func (c *Classifier) ClassifyAll(ctx context.Context, host string, ports []uint16, banners map[uint16]*model.BannerInfo) []model.VaptResult {
	results := make([]model.VaptResult, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		var text string
		if b := banners[port]; b != nil {
			text = b.Banner
		}
		results = append(results, c.Classify(ctx, host, port, text))
	}
	return results
}

// assessWeb fetches the root page, checks the response headers and, for
// TLS ports, records the TLS placeholder.
func (c *Classifier) assessWeb(ctx context.Context, host string, port uint16, result *model.VaptResult) {
	tlsPort := slices.Contains(c.tlsPorts, port)

	headers, status, err := c.fetch(ctx, host, port, tlsPort)
	if err != nil {
		c.logger.Debug("web check failed", "port", port, "error", err)
		result.Vulnerabilities = append(result.Vulnerabilities, unreachableFinding)
	} else {
		result.SecurityHeaders = headers
		if status == http.StatusOK {
			result.Vulnerabilities = append(result.Vulnerabilities, defaultPageFinding)
		}
		checkSecurityHeaders(headers, result)
	}

	if tlsPort {
		result.SslInfo = c.checkTLS(ctx, host, port)
	}
}

// fetch performs GET / and returns the lower-cased response headers.
func (c *Classifier) fetch(ctx context.Context, host string, port uint16, tlsPort bool) (map[string]string, int, error) {
	scheme := "http"
	if tlsPort {
		scheme = "https"
	}
	target := fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(host, strconv.Itoa(int(port))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return headers, resp.StatusCode, nil
}

// checkSecurityHeaders adds a Medium finding and a recommendation for each
// missing security header.
func checkSecurityHeaders(headers map[string]string, result *model.VaptResult) {
	for _, h := range securityHeaders {
		if _, ok := headers[h.name]; ok {
			continue
		}
		result.Vulnerabilities = append(result.Vulnerabilities, model.Vulnerability{
			Name:        "Missing Security Header: " + h.name,
			Description: h.description,
			Severity:    model.RiskMedium,
			Remediation: h.recommendation,
		})
		result.Recommendations = model.AppendUnique(result.Recommendations, h.recommendation)
	}
}

// checkTLS only verifies the port accepts a connection. Certificate and
// cipher inspection is not performed, and the result says so.
func (c *Classifier) checkTLS(ctx context.Context, host string, port uint16) *model.SslInfo {
	info := &model.SslInfo{
		WeakCiphers: make([]string, 0),
		Issues:      make([]string, 0, 1),
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.tlsTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		info.Issues = append(info.Issues, IssueTLSConnectFailed)
		return info
	}
	_ = conn.Close()
	info.Issues = append(info.Issues, IssueTLSNotImplemented)
	return info
}
