package protocol

import (
	"context"
	"strings"

	"github.com/nao1215/portvapt/internal/model"
	"golang.org/x/net/proxy"
)

const (
	ftpGreetingSize = 512
	ftpHelpSize     = 256
)

// ftpSignatures mark a greeting as coming from a known FTP server.
var ftpSignatures = []string{"FTP server", "vsFTPd", "ProFTPD"}

// FTPProbe reads the server greeting without sending anything first, then
// asks for HELP. The HELP exchange is best effort.
type FTPProbe struct {
	base
}

// NewFTPProbe creates an FTP probe.
func NewFTPProbe(dialer proxy.ContextDialer, opts ...Option) *FTPProbe {
	return &FTPProbe{base: newBase(dialer, opts)}
}

// Name returns the probe label.
func (p *FTPProbe) Name() string {
	return "ftp"
}

// Probe reads the greeting and the HELP response.
func (p *FTPProbe) Probe(ctx context.Context, host string, port uint16) Result {
	s, err := p.connect(ctx, host, port)
	if err != nil {
		return Miss()
	}
	defer s.Close()

	greeting, err := s.readOnce(ftpGreetingSize)
	if err != nil {
		return Miss()
	}

	banner := strings.TrimSpace(greeting)
	info := &model.BannerInfo{
		Protocol:       "FTP",
		Banner:         banner,
		AdditionalInfo: make([]string, 0),
	}
	if containsAny(banner, ftpSignatures) {
		server := banner
		info.ServerInfo = &server
	}

	if err := s.send("HELP\r\n"); err == nil {
		if help, err := s.readOnce(ftpHelpSize); err == nil {
			info.AdditionalInfo = append(info.AdditionalInfo, "HELP: "+strings.TrimSpace(help))
		}
	}

	return Hit(info)
}

// containsAny reports whether s contains any of subs, case-sensitively.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
