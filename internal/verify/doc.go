// Package verify cross-checks discovered ports against nmap.
//
// Verification is best effort. A missing nmap binary, a failed run or
// unreadable output is recorded on the returned Verification and never
// stops the scan.
package verify
