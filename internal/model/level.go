package model

import (
	"fmt"
	"strings"
)

// SecurityLevel tags a buffer with the sensitivity of its contents.
// CRITICAL content may not be validated without an attached audit
// trail.
type SecurityLevel int

const (
	LevelStandard SecurityLevel = 0
	LevelHigh     SecurityLevel = 1
	LevelCritical SecurityLevel = 2
)

func (l SecurityLevel) String() string {
	switch l {
	case LevelStandard:
		return "STANDARD"
	case LevelHigh:
		return "HIGH"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to its value.
func ParseLevel(s string) (SecurityLevel, error) {
	switch strings.ToLower(s) {
	case "standard":
		return LevelStandard, nil
	case "high":
		return LevelHigh, nil
	case "critical":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("model: unknown security level %q", s)
}

// MarshalText renders the level name for JSON and YAML.
func (l SecurityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts any spelling ParseLevel does.
func (l *SecurityLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
