// Package netclient provides the dialers and HTTP clients used by every
// network-facing part of a scan.
//
// Connections are direct by default. When a socks5:// proxy is configured,
// raw TCP probes, the port scanner, the TLS placeholder check and HTTP
// requests all go through it via golang.org/x/net/proxy.
package netclient
