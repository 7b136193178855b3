package model

// Engine-wide constants. Changing any of these changes the audit
// semantics of every buffer in the process; they are not configurable.
const (
	// MaxBufferSize is the fixed buffer capacity in bytes.
	MaxBufferSize = 8192

	// DigestSize is the audit digest width in bytes.
	DigestSize = 32

	// DefaultAlpha weights the complexity signal of the cost function.
	DefaultAlpha = 0.6

	// DefaultBeta weights the divergence signal of the cost function.
	DefaultBeta = 0.4

	// EpsilonMin floors probabilities inside the cost function and
	// collapses smaller cost values to exactly zero.
	EpsilonMin = 1e-12

	// WeightTolerance bounds how far alpha+beta may exceed 1.
	WeightTolerance = 1e-4

	// AutonomousLimit is the inclusive upper cost bound of the
	// AUTONOMOUS zone.
	AutonomousLimit = 0.5

	// WarningLimit is the inclusive upper cost bound of the WARNING
	// zone. Cost above it is GOVERNANCE.
	WarningLimit = 0.6
)
