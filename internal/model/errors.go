package model

import "errors"

var (
	// ErrInvalidPortRange is returned when a port range string cannot be parsed.
	ErrInvalidPortRange = errors.New("invalid port range")

	// ErrInvalidRiskLevel is returned when a risk level has no serialized name.
	ErrInvalidRiskLevel = errors.New("invalid risk level")
)
