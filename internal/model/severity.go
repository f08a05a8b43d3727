package model

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the ordered severity scale used for individual findings and
// for the aggregate risk of a port. Low < Medium < High < Critical.
type RiskLevel int

const (
	// RiskLow indicates an informational or minor finding.
	RiskLow RiskLevel = iota

	// RiskMedium indicates a finding that warrants attention.
	RiskMedium

	// RiskHigh indicates a serious weakness such as cleartext file transfer.
	RiskHigh

	// RiskCritical indicates an immediately exploitable exposure.
	// Telnet is the canonical example.
	RiskCritical
)

// String returns the upper-case label used in text and markdown reports.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// name returns the serialized form of the level.
func (r RiskLevel) name() (string, bool) {
	switch r {
	case RiskLow:
		return "Low", true
	case RiskMedium:
		return "Medium", true
	case RiskHigh:
		return "High", true
	case RiskCritical:
		return "Critical", true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the four defined levels.
func (r RiskLevel) Valid() bool {
	_, ok := r.name()
	return ok
}

// MarshalJSON encodes the level by name ("Low", "Medium", "High", "Critical").
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	s, ok := r.name()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRiskLevel, int(r))
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodes a level name produced by MarshalJSON.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRiskLevel, string(data))
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// ParseRiskLevel converts a serialized level name back into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "Low":
		return RiskLow, nil
	case "Medium":
		return RiskMedium, nil
	case "High":
		return RiskHigh, nil
	case "Critical":
		return RiskCritical, nil
	default:
		return RiskLow, fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
}

// Escalate returns the more severe of a and b.
func Escalate(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}

// AggregateRisk folds Escalate over the severities of vulns, starting at
// RiskLow. Critical is the ceiling, so the fold stops once it is reached.
func AggregateRisk(vulns []Vulnerability) RiskLevel {
	level := RiskLow
	for _, v := range vulns {
		level = Escalate(level, v.Severity)
		if level == RiskCritical {
			break
		}
	}
	return level
}

// AllRiskLevels lists the levels from most to least severe, the order
// used when printing per-level counts.
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow}
}
