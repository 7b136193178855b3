package model

import (
	"fmt"
	"strings"
)

// Zone is the governance classification of validated content.
// Ordered: escalation can only move to a higher zone, never a lower
// one, for monotonically increasing cost.
type Zone int

const (
	ZoneAutonomous Zone = 0
	ZoneWarning    Zone = 1
	ZoneGovernance Zone = 2
)

func (z Zone) String() string {
	switch z {
	case ZoneAutonomous:
		return "AUTONOMOUS"
	case ZoneWarning:
		return "WARNING"
	case ZoneGovernance:
		return "GOVERNANCE"
	default:
		return "UNKNOWN"
	}
}

// ParseZone maps a case-insensitive zone name to its value.
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(s) {
	case "autonomous":
		return ZoneAutonomous, nil
	case "warning":
		return ZoneWarning, nil
	case "governance":
		return ZoneGovernance, nil
	}
	return 0, fmt.Errorf("model: unknown governance zone %q", s)
}

// MarshalText renders the zone name for JSON and YAML.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText accepts any spelling ParseZone does.
func (z *Zone) UnmarshalText(text []byte) error {
	parsed, err := ParseZone(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}
