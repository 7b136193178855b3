// Package zone maps governance cost onto the three-zone model.
package zone

import "github.com/bufgate/bufgate/internal/model"

// Classify returns the governance zone for a cost value. Boundaries
// are closed below and open above: 0.5 is still AUTONOMOUS, 0.6 is
// still WARNING, anything higher is GOVERNANCE.
// INVARIANT: zone is a pure function of cost for the fixed thresholds;
// rising cost can only raise the zone, never lower it. Non-finite
// input lands in GOVERNANCE.
func Classify(cost float64) model.Zone {
	switch {
	case cost <= model.AutonomousLimit:
		return model.ZoneAutonomous
	case cost <= model.WarningLimit:
		return model.ZoneWarning
	default:
		return model.ZoneGovernance
	}
}
