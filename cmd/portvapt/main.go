// Package main provides the entry point for the portvapt CLI.
//
// portvapt scans a host's TCP ports, identifies the services answering on
// the open ones and grades each with a heuristic risk level.
//
// Usage:
//
//	portvapt scan <host>
//	portvapt scan -p 1-65535 -o markdown <host>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
