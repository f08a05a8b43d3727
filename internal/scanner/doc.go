// Package scanner discovers open TCP ports with connect scans.
//
// Attempts run concurrently, bounded by errgroup.SetLimit, and each one is
// classified as open (the connection was accepted) or closed (refused,
// reset, timed out or otherwise failed). Running out of file descriptors is
// the only fatal condition.
package scanner
