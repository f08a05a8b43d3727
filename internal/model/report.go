package model

import (
	"slices"
	"time"
)

// BannerInfo is what a protocol probe learned about the service on a port.
type BannerInfo struct {
	// Protocol is the label of the probe that produced the banner,
	// e.g. "HTTP", "FTP", "SMTP", or a guess such as "SSH" or "Unknown".
	Protocol string `json:"protocol"`

	// Banner is the trimmed text the service sent back.
	Banner string `json:"banner"`

	// ServerInfo carries a server identification string when one was recognized.
	ServerInfo *string `json:"server_info"`

	// Version is the software version when it can be read from the banner.
	Version *string `json:"version"`

	// AdditionalInfo holds extra lines, in the order they were seen.
	AdditionalInfo []string `json:"additional_info"`
}

// Vulnerability is a single heuristic finding against a port.
type Vulnerability struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Severity    RiskLevel `json:"severity"`
	CVE         *string   `json:"cve"`
	Remediation string    `json:"remediation"`
}

// SslInfo records the TLS posture observed for a port. Only a placeholder
// check is performed, so CertificateValid is never true.
type SslInfo struct {
	CertificateValid  bool     `json:"certificate_valid"`
	CertificateExpiry *string  `json:"certificate_expiry"`
	WeakCiphers       []string `json:"weak_ciphers"`
	TLSVersion        *string  `json:"tls_version"`
	Issues            []string `json:"issues"`
}

// VaptResult is the per-port assessment. Exactly one exists for every open
// port and none for any other port.
type VaptResult struct {
	Port            uint16            `json:"port"`
	Service         string            `json:"service"`
	Vulnerabilities []Vulnerability   `json:"vulnerabilities"`
	SecurityHeaders map[string]string `json:"security_headers"`
	SslInfo         *SslInfo          `json:"ssl_info"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	Recommendations []string          `json:"recommendations"`
}

// Verification is the outcome of comparing our open ports against a
// reference scanner.
type Verification struct {
	// Tool is the reference scanner that was consulted.
	Tool string `json:"tool"`

	// OnlyOurs lists ports we saw open that the reference did not.
	OnlyOurs []uint16 `json:"only_ours"`

	// OnlyReference lists ports the reference saw open that we did not.
	OnlyReference []uint16 `json:"only_reference"`

	// Err is set when the reference scanner could not be run.
	Err string `json:"error,omitempty"`
}

// Matches reports whether both sides agreed and the comparison ran.
func (v *Verification) Matches() bool {
	return v.Err == "" && len(v.OnlyOurs) == 0 && len(v.OnlyReference) == 0
}

// ScanReport carries the state of one scan through its phases.
type ScanReport struct {
	Host      string        `json:"host"`
	Range     PortRange     `json:"range"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// OpenPorts is in discovery order, which is not sorted.
	OpenPorts []uint16 `json:"open_ports"`

	// Banners maps a port to its identification. Ports with no
	// successful probe have no entry.
	Banners map[uint16]*BannerInfo `json:"banners,omitempty"`

	Results      []VaptResult  `json:"results"`
	Verification *Verification `json:"verification,omitempty"`

	// PerformedSteps names the phases that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is set when the scan was interrupted before all phases ran.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error holds the message of the phase failure that ended the scan.
	Error string `json:"error,omitempty"`
}

// NewScanReport creates a report for host over r.
func NewScanReport(host string, r PortRange) *ScanReport {
	return &ScanReport{
		Host:      host,
		Range:     r,
		StartedAt: time.Now(),
		OpenPorts: make([]uint16, 0),
		Banners:   make(map[uint16]*BannerInfo),
		Results:   make([]VaptResult, 0),
	}
}

// SortedOpenPorts returns the open ports in ascending order without
// modifying OpenPorts.
func (r *ScanReport) SortedOpenPorts() []uint16 {
	ports := slices.Clone(r.OpenPorts)
	slices.Sort(ports)
	return ports
}

// Banner returns the banner identified on port, or nil.
func (r *ScanReport) Banner(port uint16) *BannerInfo {
	if r.Banners == nil {
		return nil
	}
	return r.Banners[port]
}
