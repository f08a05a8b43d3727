package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/portvapt/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "portvapt"

	// DefaultPorts covers the well-known ports.
	DefaultPorts = "1-1024"

	// DefaultTimeout bounds each connect attempt and each probe I/O. Local
	// networks answer well within it; raise it for distant hosts.
	DefaultTimeout = 200 * time.Millisecond

	// DefaultConcurrency is the number of simultaneous connect attempts.
	DefaultConcurrency = 100

	// DefaultHTTPTimeout bounds the whole web check request.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultTLSTimeout bounds the TLS reachability check.
	DefaultTLSTimeout = 5 * time.Second

	// DefaultUserAgent identifies the scanner in server logs.
	DefaultUserAgent = "PortScanner/1.0"

	// DefaultOutput is the report format.
	DefaultOutput = "text"
)

// Config holds all options of a scan. It is built from defaults, overlaid
// by the config file and then by explicitly set flags.
type Config struct {
	// Host is the scan target, an IP address or hostname.
	Host string

	// Ports is the port range as "START-END".
	Ports string

	// Timeout bounds each connect attempt and each probe read or write.
	Timeout time.Duration

	// Concurrency is the maximum number of in-flight connect attempts.
	Concurrency int

	// Banner enables banner identification of open ports.
	Banner bool

	// Output is the report format name: text, json or markdown.
	// An unknown name degrades to text instead of failing.
	Output string

	// Verify runs nmap over the same range and compares the results.
	Verify bool

	// ServicesFile is the nmap-services table path. Empty means search the
	// usual locations and fall back to the embedded table.
	ServicesFile string

	HTTPTimeout time.Duration
	TLSTimeout  time.Duration
	UserAgent   string

	// Proxy is an optional socks5:// URL all connections go through.
	Proxy string

	// ReportFile receives a copy of the report when set.
	ReportFile string

	NoColor bool
	LogJSON bool
	LogFile string
	Verbose bool

	// ConfigFilePath is the explicit --config path, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Ports:       DefaultPorts,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Banner:      true,
		Output:      DefaultOutput,
		HTTPTimeout: DefaultHTTPTimeout,
		TLSTimeout:  DefaultTLSTimeout,
		UserAgent:   DefaultUserAgent,
	}
}

// XDGConfigDir returns the XDG config directory for portvapt.
// On Linux: ~/.config/portvapt
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGDataDir returns the XDG data directory for portvapt, where a custom
// nmap-services table may be placed.
// On Linux: ~/.local/share/portvapt
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// PortRange parses Ports.
func (c *Config) PortRange() (model.PortRange, error) {
	return model.ParsePortRange(c.Ports)
}

// Validate checks the configuration and returns the first problem found.
// A malformed port range wraps model.ErrInvalidPortRange.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrNoTarget
	}

	if _, err := c.PortRange(); err != nil {
		return fmt.Errorf("invalid --ports %q: %w", c.Ports, err)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout", ErrInvalidTimeout)
	}
	if c.TLSTimeout <= 0 {
		return fmt.Errorf("%w: tls timeout", ErrInvalidTimeout)
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
