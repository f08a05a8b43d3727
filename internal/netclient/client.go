package netclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckProxy.
const checkProxyTimeout = 2 * time.Second

// Client hands out dialers and HTTP clients that either connect directly or
// through a SOCKS5 proxy. Every network component of a scan gets its
// connections from the same Client, so a proxy applies to all of them.
type Client struct {
	// proxyURL is nil for direct connections.
	proxyURL *url.URL

	// dialer is the proxy-aware dialer. For direct connections it is a
	// *net.Dialer.
	dialer proxy.Dialer

	// httpTimeout bounds each request made by clients from NewHTTPClient.
	httpTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPTimeout sets the overall timeout of HTTP clients created by the Client.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpTimeout = timeout
	}
}

// New creates a Client. An empty proxyAddr means direct connections.
// Otherwise proxyAddr must be a socks5:// URL, optionally carrying
// user:password credentials.
//
// No connection to the proxy is made here. Call CheckProxy to verify it.
func New(proxyAddr string, opts ...Option) (*Client, error) {
	c := &Client{
		dialer:      &net.Dialer{},
		httpTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if proxyAddr == "" {
		return c, nil
	}

	u, err := ParseProxyURL(proxyAddr)
	if err != nil {
		return nil, err
	}

	var auth *proxy.Auth
	if u.User != nil {
		auth = &proxy.Auth{User: u.User.Username()}
		if p, ok := u.User.Password(); ok {
			auth.Password = p
		}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	c.proxyURL = u
	c.dialer = d
	return c, nil
}

// ParseProxyURL validates a socks5://host:port address.
func ParseProxyURL(addr string) (*url.URL, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxyAddress, err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("%w: unsupported scheme %q (only socks5 is supported)", ErrInvalidProxyAddress, u.Scheme)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil || host == "" || port == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}
	return u, nil
}

// Proxied reports whether connections go through a proxy.
func (c *Client) Proxied() bool {
	return c.proxyURL != nil
}

// ProxyAddress returns the host:port of the proxy, or "" for direct connections.
func (c *Client) ProxyAddress() string {
	if c.proxyURL == nil {
		return ""
	}
	return c.proxyURL.Host
}

// Dialer returns a context-aware dialer for raw TCP connections.
func (c *Client) Dialer() proxy.ContextDialer {
	return contextDialer{c}
}

// DialContext establishes a TCP connection, honoring ctx cancellation.
//
// proxy.Dialer implementations that lack DialContext are dialed in a
// goroutine; on cancellation the call returns while the dial may still
// finish in the background, in which case the connection is closed.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// NewHTTPClient creates an HTTP client whose connections use the same
// dialer as raw TCP probes. Redirects are not followed so the status of the
// root page is what gets assessed.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:         c.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableKeepAlives:   true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.httpTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

type contextDialer struct {
	c *Client
}

func (d contextDialer) Dial(network, address string) (net.Conn, error) {
	return d.c.DialContext(context.Background(), network, address)
}

func (d contextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.c.DialContext(ctx, network, address)
}

// SOCKS5 protocol constants
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthPassword = 0x02
	socks5AuthNoAccept = 0xFF
)

// CheckProxy verifies that the configured proxy speaks SOCKS5 and accepts
// one of the authentication methods we can offer. It returns ProxyStatusOK
// immediately for direct connections.
func (c *Client) CheckProxy(ctx context.Context) ProxyStatus {
	if c.proxyURL == nil {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyURL.Host)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Offer no-auth, plus username/password when credentials are configured.
	greeting := []byte{socks5Version, 0x01, socks5AuthNone}
	if c.proxyURL.User != nil {
		greeting = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(greeting); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	switch resp[1] {
	case socks5AuthNone:
		return ProxyStatusOK
	case socks5AuthPassword:
		if c.proxyURL.User != nil {
			return ProxyStatusOK
		}
		return ProxyStatusAuthRequired
	case socks5AuthNoAccept:
		return ProxyStatusAuthRequired
	default:
		return ProxyStatusWrongType
	}
}
