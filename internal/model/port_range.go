package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PortRange is an inclusive range of TCP ports. Start <= End always holds
// for values returned by ParsePortRange.
type PortRange struct {
	Start uint16 `json:"start"`
	End   uint16 `json:"end"`
}

// ParsePortRange parses "START-END". Both bounds must be decimal integers in
// 0..65535 and START must not exceed END. No I/O happens here, so callers can
// reject a malformed range before any scanning starts.
func ParsePortRange(s string) (PortRange, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return PortRange{}, fmt.Errorf("%w: use START-END (e.g., 1-1024), got %q", ErrInvalidPortRange, s)
	}

	start, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: invalid start port %q", ErrInvalidPortRange, parts[0])
	}
	end, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: invalid end port %q", ErrInvalidPortRange, parts[1])
	}
	if start > end {
		return PortRange{}, fmt.Errorf("%w: start port must be less than or equal to end port", ErrInvalidPortRange)
	}

	return PortRange{Start: uint16(start), End: uint16(end)}, nil
}

// Len returns the number of ports in the range.
func (r PortRange) Len() int {
	return int(r.End) - int(r.Start) + 1
}

// Contains reports whether port lies within the range.
func (r PortRange) Contains(port uint16) bool {
	return port >= r.Start && port <= r.End
}

// String formats the range as "START-END".
func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
