package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

const (
	httpReadSize = 1024

	// httpInspectLines is how many response lines are searched for headers.
	httpInspectLines = 10
)

// HTTPProbe sends a HEAD request and reads one buffer of the response.
// Any bytes at all count as a hit, even from a non-HTTP service that
// greets first; the classifier re-derives the service from the banner text.
type HTTPProbe struct {
	base
}

// NewHTTPProbe creates an HTTP probe.
func NewHTTPProbe(dialer proxy.ContextDialer, opts ...Option) *HTTPProbe {
	return &HTTPProbe{base: newBase(dialer, opts)}
}

// Name returns the probe label.
func (p *HTTPProbe) Name() string {
	return "http"
}

// Probe performs the HEAD exchange.
func (p *HTTPProbe) Probe(ctx context.Context, host string, port uint16) Result {
	s, err := p.connect(ctx, host, port)
	if err != nil {
		return Miss()
	}
	defer s.Close()

	request := fmt.Sprintf(
		"HEAD / HTTP/1.1\r\nHost: %s:%d\r\nUser-Agent: %s\r\nConnection: close\r\n\r\n",
		host, port, p.userAgent,
	)
	if err := s.send(request); err != nil {
		return Miss()
	}

	response, err := s.readOnce(httpReadSize)
	if err != nil {
		return Miss()
	}

	lines := splitLines(response)
	if len(lines) == 0 {
		return Miss()
	}

	return Hit(parseHTTPResponse(lines))
}

// parseHTTPResponse builds the banner from response lines. The Server
// prefix match is case-sensitive.
func parseHTTPResponse(lines []string) *model.BannerInfo {
	info := &model.BannerInfo{
		Protocol:       "HTTP",
		AdditionalInfo: make([]string, 0),
	}

	for i, line := range lines {
		if i >= httpInspectLines {
			break
		}
		switch {
		case strings.HasPrefix(line, "Server:"):
			server := strings.TrimSpace(line[len("Server:"):])
			info.ServerInfo = &server
		case strings.HasPrefix(line, "X-"), strings.HasPrefix(line, "Via:"):
			info.AdditionalInfo = append(info.AdditionalInfo, strings.TrimSpace(line))
		}
	}

	banner := lines[0]
	if len(lines) > 1 {
		banner = strings.Join(lines[1:], "\n")
	}
	info.Banner = strings.TrimSpace(banner)

	return info
}
