package gate

import (
	"math"

	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

// Context is the value snapshot a Validator is built from. The
// validator copies it at construction; later changes to the source
// never reach a live validator.
type Context struct {
	ZeroTrustEnforced bool
	CanonicalOnly     bool
	Alpha             float64
	Beta              float64
	EpsilonMin        float64
	ZoneLimit         model.Zone
}

// DefaultContext returns the engine defaults: zero trust on,
// canonical-only on, weights 0.6/0.4, WARNING as the hard limit.
func DefaultContext() Context {
	return Context{
		ZeroTrustEnforced: true,
		CanonicalOnly:     true,
		Alpha:             model.DefaultAlpha,
		Beta:              model.DefaultBeta,
		EpsilonMin:        model.EpsilonMin,
		ZoneLimit:         model.ZoneWarning,
	}
}

// FromPolicy snapshots a policy into a validation context.
func FromPolicy(p *policy.Policy) Context {
	return Context{
		ZeroTrustEnforced: p.ZeroTrust(),
		CanonicalOnly:     p.CanonicalOnly(),
		Alpha:             p.Alpha(),
		Beta:              p.Beta(),
		EpsilonMin:        p.EpsilonMin(),
		ZoneLimit:         p.ZoneLimit(),
	}
}

// check rejects contexts no validator may be built from.
func (c Context) check() error {
	if !c.ZeroTrustEnforced {
		return model.Errorf(model.CodeZeroTrustViolation, "gate", "zero trust enforcement is mandatory")
	}
	if math.IsNaN(c.EpsilonMin) || math.IsInf(c.EpsilonMin, 0) || c.EpsilonMin < 0 {
		return model.Errorf(model.CodeNumericalInstability, "gate", "epsilon floor must be finite and non-negative")
	}
	if c.ZoneLimit < model.ZoneAutonomous || c.ZoneLimit > model.ZoneGovernance {
		return model.Errorf(model.CodeInvalidInput, "gate", "unknown zone limit %d", int(c.ZoneLimit))
	}
	return nil
}
