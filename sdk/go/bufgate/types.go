package bufgate

import (
	"strings"

	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

// Code identifies a failure class. Exactly one code per failure.
type Code = model.Code

const (
	CodeInvalidInput         = model.CodeInvalidInput
	CodeValidationFailed     = model.CodeValidationFailed
	CodeAuditRequired        = model.CodeAuditRequired
	CodeZeroTrustViolation   = model.CodeZeroTrustViolation
	CodeBufferOverflow       = model.CodeBufferOverflow
	CodeNumericalInstability = model.CodeNumericalInstability
	CodeSinphaseViolation    = model.CodeSinphaseViolation
)

// Error is the typed error returned across the SDK boundary. Works
// with errors.Is and errors.As.
type Error = model.Error

// CodeOf recovers the failure code from any error returned by the SDK,
// or zero when err carries no tagged error.
func CodeOf(err error) Code {
	c, _ := model.CodeOf(err)
	return c
}

// SecurityLevel is the trust tier a buffer is created at.
type SecurityLevel = model.SecurityLevel

const (
	LevelStandard = model.LevelStandard
	LevelHigh     = model.LevelHigh
	LevelCritical = model.LevelCritical
)

// Zone is the governance classification of a validated payload.
type Zone = model.Zone

const (
	ZoneAutonomous = model.ZoneAutonomous
	ZoneWarning    = model.ZoneWarning
	ZoneGovernance = model.ZoneGovernance
)

// Engine constants, fixed per process.
const (
	MaxBufferSize   = model.MaxBufferSize
	DigestSize      = model.DigestSize
	DefaultAlpha    = model.DefaultAlpha
	DefaultBeta     = model.DefaultBeta
	EpsilonMin      = model.EpsilonMin
	WeightTolerance = model.WeightTolerance
	AutonomousLimit = model.AutonomousLimit
	WarningLimit    = model.WarningLimit
)

// Config is the policy surface exposed to embedders. Zero value is
// not valid; start from DefaultConfig.
type Config struct {
	ZeroTrust     bool
	CanonicalOnly bool
	Alpha         float64
	Beta          float64
	EpsilonMin    float64
	ZoneLimit     Zone
	RequiredLevel SecurityLevel
	AuditLog      string
	MetricsFile   string
}

// DefaultConfig returns the engine defaults: zero trust on, canonical
// input required, WARNING zone limit, audit mandatory at CRITICAL.
func DefaultConfig() Config {
	return Config{
		ZeroTrust:     true,
		CanonicalOnly: true,
		Alpha:         DefaultAlpha,
		Beta:          DefaultBeta,
		EpsilonMin:    EpsilonMin,
		ZoneLimit:     ZoneWarning,
		RequiredLevel: LevelCritical,
	}
}

// toInternal maps an SDK Config onto the internal policy config.
func (c Config) toInternal() policy.Config {
	pc := *policy.DefaultConfig()
	pc.ZeroTrust = c.ZeroTrust
	pc.CanonicalOnly = c.CanonicalOnly
	pc.Weights.Alpha = c.Alpha
	pc.Weights.Beta = c.Beta
	pc.EpsilonMin = c.EpsilonMin
	pc.ZoneLimit = strings.ToLower(c.ZoneLimit.String())
	pc.Audit.Log = c.AuditLog
	pc.Audit.RequiredLevel = strings.ToLower(c.RequiredLevel.String())
	pc.Metrics.Textfile = c.MetricsFile
	return pc
}

// Result is a successful validation outcome.
type Result struct {
	Cost     float64
	Zone     Zone
	Digest   string
	Length   int
	FastPath bool
}

// Report summarizes a buffer after a successful validation.
type Report struct {
	Digest string
	Cost   float64
	Zone   Zone
	Length int
	Level  SecurityLevel
}
