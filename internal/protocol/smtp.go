package protocol

import (
	"context"
	"strings"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

const (
	smtpReadSize = 512

	// smtpInspectLines is how many EHLO response lines are searched.
	smtpInspectLines = 5

	// smtpEHLODomain is the domain announced in EHLO.
	smtpEHLODomain = "example.com"
)

var (
	smtpSignatures   = []string{"SMTP", "ESMTP"}
	smtpCapabilities = []string{"SIZE", "AUTH", "STARTTLS"}
)

// SMTPProbe reads the greeting, then sends EHLO and records advertised
// capabilities. The EHLO exchange is best effort.
type SMTPProbe struct {
	base
}

// NewSMTPProbe creates an SMTP probe.
func NewSMTPProbe(dialer proxy.ContextDialer, opts ...Option) *SMTPProbe {
	return &SMTPProbe{base: newBase(dialer, opts)}
}

// Name returns the probe label.
func (p *SMTPProbe) Name() string {
	return "smtp"
}

// Probe reads the greeting and the EHLO response.
func (p *SMTPProbe) Probe(ctx context.Context, host string, port uint16) Result {
	s, err := p.connect(ctx, host, port)
	if err != nil {
		return Miss()
	}
	defer s.Close()

	greeting, err := s.readOnce(smtpReadSize)
	if err != nil {
		return Miss()
	}

	banner := strings.TrimSpace(greeting)
	info := &model.BannerInfo{
		Protocol:       "SMTP",
		Banner:         banner,
		AdditionalInfo: make([]string, 0),
	}
	if containsAny(banner, smtpSignatures) {
		server := banner
		info.ServerInfo = &server
	}

	if err := s.send("EHLO " + smtpEHLODomain + "\r\n"); err == nil {
		if ehlo, err := s.readOnce(smtpReadSize); err == nil {
			info.AdditionalInfo = append(info.AdditionalInfo, smtpCapabilityLines(ehlo)...)
		}
	}

	return Hit(info)
}

// smtpCapabilityLines returns the lines among the first few that carry a
// 250 reply code and a capability of interest.
func smtpCapabilityLines(response string) []string {
	found := make([]string, 0)
	for i, line := range splitLines(response) {
		if i >= smtpInspectLines {
			break
		}
		if strings.Contains(line, "250") && containsAny(line, smtpCapabilities) {
			found = append(found, strings.TrimSpace(line))
		}
	}
	return found
}
