package protocol

import (
	"context"
	"strings"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

const genericReadSize = 512

// GenericProbe is the last resort: it sends a bare line terminator and
// guesses the protocol from whatever comes back.
type GenericProbe struct {
	base
}

// NewGenericProbe creates the fallback probe.
func NewGenericProbe(dialer proxy.ContextDialer, opts ...Option) *GenericProbe {
	return &GenericProbe{base: newBase(dialer, opts)}
}

// Name returns the probe label.
func (p *GenericProbe) Name() string {
	return "generic"
}

// Probe sends "\r\n" and classifies the reply.
func (p *GenericProbe) Probe(ctx context.Context, host string, port uint16) Result {
	s, err := p.connect(ctx, host, port)
	if err != nil {
		return Miss()
	}
	defer s.Close()

	if err := s.send("\r\n"); err != nil {
		return Miss()
	}
	reply, err := s.readOnce(genericReadSize)
	if err != nil {
		return Miss()
	}

	banner := strings.TrimSpace(reply)
	return Hit(&model.BannerInfo{
		Protocol:       GuessProtocol(banner),
		Banner:         banner,
		AdditionalInfo: make([]string, 0),
	})
}

// protocolKeywords are checked in order; the first match wins.
var protocolKeywords = []struct {
	keyword  string
	protocol string
}{
	{"http", "HTTP"},
	{"ssh", "SSH"},
	{"ftp", "FTP"},
	{"smtp", "SMTP"},
	{"telnet", "TELNET"},
}

// GuessProtocol maps banner text to a protocol label by case-insensitive
// keyword search. It returns "Unknown" when nothing matches.
func GuessProtocol(banner string) string {
	if p, ok := MatchKeyword(banner); ok {
		return p
	}
	return "Unknown"
}

// MatchKeyword reports the protocol whose keyword first appears in banner.
func MatchKeyword(banner string) (string, bool) {
	lower := strings.ToLower(banner)
	for _, k := range protocolKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.protocol, true
		}
	}
	return "", false
}
