package vapt

import (
	"strings"

	"github.com/nao1215/portvapt/internal/protocol"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ServiceLookup resolves a port to a service name, returning "Unknown" for
// ports it does not know. *services.Table satisfies it.
type ServiceLookup interface {
	Lookup(port uint16, proto string) string
}

// serviceAliases maps service table names whose canonical form is not just
// the upper-cased name.
var serviceAliases = map[string]string{
	"ms-wbt-server": ServiceRDP,
	"www":           ServiceHTTP,
	"www-http":      ServiceHTTP,
	"http-alt":      ServiceHTTP,
	"http-proxy":    ServiceHTTP,
}

// canonicalService converts a service table name such as "telnet" into the
// upper-case form the rules are keyed by.
func canonicalService(name string) string {
	if name == "" || name == ServiceUnknown {
		return ServiceUnknown
	}
	if alias, ok := serviceAliases[strings.ToLower(name)]; ok {
		return alias
	}
	return cases.Upper(language.Und).String(name)
}

// ResolveService decides which service a port runs.
//
// A protocol keyword in the banner wins over the service table, and a port
// neither source knows is Unknown. An empty banner means none was captured.
func ResolveService(lookup ServiceLookup, port uint16, banner string) string {
	if p, ok := protocol.MatchKeyword(banner); ok {
		return p
	}
	if lookup == nil {
		return ServiceUnknown
	}
	return canonicalService(lookup.Lookup(port, "tcp"))
}
