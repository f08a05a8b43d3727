// Package pipeline runs the phases of a scan in sequence.
//
// A scan is discovery, then banner identification, then classification,
// then an optional verification against nmap. Each phase is a Step that
// receives the shared ScanReport and fills in its part. Only discovery can
// fail; the later phases turn per-port problems into report content.
//
// Steps depend on small interfaces rather than concrete types, so each
// phase can be replaced in tests.
package pipeline
