// Package vapt classifies open ports into vulnerability findings.
//
// For each open port the Classifier resolves a service name (banner
// keywords first, then the service table) and applies the matching rule:
//
//   - HTTP/HTTPS: fetch the root page, flag a reachable default page and
//     each missing security header; TLS ports also get a reachability check
//   - SSH, FTP, SMTP, TELNET, RDP: a fixed finding per service
//   - anything else: a generic Medium finding naming the service
//
// The result's RiskLevel is the highest finding severity, or Low when there
// are none.
package vapt
