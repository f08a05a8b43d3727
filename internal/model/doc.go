// Package model defines the data structures shared by the scanner, the
// probes, the classifier and the report writers.
//
// This package contains the following main types:
//   - PortRange: the inclusive range parsed from the command line
//   - BannerInfo: what a protocol probe learned about a port
//   - Vulnerability, SslInfo, VaptResult: the per-port assessment
//   - RiskLevel: the ordered severity scale and its aggregation
//   - ScanReport: the state carried through the scan phases
//   - Summary: per-level counts and general recommendations
//
// The models are serializable to JSON. A VaptResult encoded by this package
// decodes back into an equal value.
package model
