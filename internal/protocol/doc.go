// Package protocol identifies the service listening on an open port by
// probing it.
//
// # Probe chain
//
// An Identifier tries an ordered list of probes and returns the first hit:
//  1. HTTP: send a HEAD request, read the response
//  2. FTP: read the greeting, then ask for HELP
//  3. SMTP: read the greeting, then send EHLO
//  4. Generic: send a line terminator, guess from the reply
//
// Each probe opens its own connection, and every connect, write and read is
// bounded by the same timeout. A probe that times out or fails returns Miss
// and the next probe runs; identification never returns an error.
//
// # Usage
//
//	id := protocol.NewIdentifier(dialer, []protocol.Option{protocol.WithTimeout(time.Second)})
//	if info := id.Identify(ctx, "192.0.2.10", 21); info != nil {
//	    fmt.Println(info.Protocol, info.Banner)
//	}
//
// # Security Considerations
//
// Probes only read banners and send harmless requests (HEAD, HELP, EHLO).
// They never authenticate or send payloads.
package protocol
