package vapt

import (
	"fmt"

	"github.com/nao1215/portvapt/internal/model"
)

// Canonical service names that select a rule.
const (
	ServiceHTTP    = "HTTP"
	ServiceHTTPS   = "HTTPS"
	ServiceSSH     = "SSH"
	ServiceFTP     = "FTP"
	ServiceSMTP    = "SMTP"
	ServiceTelnet  = "TELNET"
	ServiceRDP     = "RDP"
	ServiceUnknown = "Unknown"
)

// rule is the static assessment for a service: the standing finding and
// the recommendations that always accompany it.
type rule struct {
	finding         model.Vulnerability
	recommendations []string
}

// serviceRules maps a canonical service name to its rule. Web services are
// assessed separately because their findings depend on the response.
var serviceRules = map[string]rule{
	ServiceSSH: {
		finding: model.Vulnerability{
			Name:        "SSH Service Detected",
			Description: "SSH service is running - check for weak configurations",
			Severity:    model.RiskLow,
			Remediation: "Ensure SSH is properly configured with strong authentication",
		},
		recommendations: []string{
			"Disable root login and use key-based authentication",
			"Change default SSH port to reduce automated attacks",
		},
	},
	ServiceFTP: {
		finding: model.Vulnerability{
			Name:        "FTP Service Detected",
			Description: "FTP transmits data in plain text, making it vulnerable to sniffing",
			Severity:    model.RiskHigh,
			Remediation: "Use SFTP or FTPS instead of plain FTP",
		},
		recommendations: []string{
			"Replace FTP with SFTP for secure file transfer",
		},
	},
	ServiceSMTP: {
		finding: model.Vulnerability{
			Name:        "SMTP Service Detected",
			Description: "SMTP service may be vulnerable to relay attacks",
			Severity:    model.RiskMedium,
			Remediation: "Configure SMTP to prevent open relay",
		},
		recommendations: []string{
			"Configure SMTP authentication and relay restrictions",
		},
	},
	ServiceTelnet: {
		finding: model.Vulnerability{
			Name:        "Telnet Service Detected",
			Description: "Telnet transmits data in plain text, making it vulnerable to sniffing attacks",
			Severity:    model.RiskCritical,
			Remediation: "Disable Telnet and use SSH instead",
		},
		recommendations: []string{
			"Replace Telnet with SSH for secure remote access",
		},
	},
	ServiceRDP: {
		finding: model.Vulnerability{
			Name:        "RDP Service Detected",
			Description: "RDP service may be vulnerable to brute force attacks",
			Severity:    model.RiskHigh,
			Remediation: "Enable Network Level Authentication and strong passwords",
		},
		recommendations: []string{
			"Enable NLA and use strong authentication for RDP",
			"Consider using a VPN for RDP access",
		},
	},
}

// genericRecommendation accompanies every service without a dedicated rule.
const genericRecommendation = "Document and assess all running services"

// genericRule builds the rule for a service without a dedicated template.
func genericRule(service string, port uint16) rule {
	return rule{
		finding: model.Vulnerability{
			Name:        fmt.Sprintf("%s Service Detected", service),
			Description: fmt.Sprintf("%s service running on port %d", service, port),
			Severity:    model.RiskMedium,
			Remediation: fmt.Sprintf("Identify and assess the %s service running on this port", service),
		},
		recommendations: []string{genericRecommendation},
	}
}

// securityHeader is a response header every web service should set.
type securityHeader struct {
	name           string
	description    string
	recommendation string
}

// securityHeaders lists the checked headers in report order.
var securityHeaders = []securityHeader{
	{"x-frame-options", "Missing X-Frame-Options header", "Add X-Frame-Options: DENY"},
	{"x-content-type-options", "Missing X-Content-Type-Options header", "Add X-Content-Type-Options: nosniff"},
	{"x-xss-protection", "Missing X-XSS-Protection header", "Add X-XSS-Protection: 1; mode=block"},
	{"strict-transport-security", "Missing HSTS header", "Add Strict-Transport-Security header"},
	{"content-security-policy", "Missing CSP header", "Add Content-Security-Policy header"},
}

var (
	defaultPageFinding = model.Vulnerability{
		Name:        "Default Page Accessible",
		Description: "Default web page is accessible, may reveal system information",
		Severity:    model.RiskMedium,
		Remediation: "Remove or secure default pages",
	}
	unreachableFinding = model.Vulnerability{
		Name:        "Web Service Unreachable",
		Description: "Web service is not responding properly",
		Severity:    model.RiskLow,
		Remediation: "Check service configuration",
	}
)

// TLS placeholder issues.
const (
	IssueTLSNotImplemented = "SSL certificate validation not implemented in this version"
	IssueTLSConnectFailed  = "SSL connection failed"
)
