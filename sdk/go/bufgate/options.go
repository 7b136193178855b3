package bufgate

import (
	"github.com/bufgate/bufgate/internal/gate"
)

// InitOption configures process initialization.
type InitOption func(*initConfig)

type initConfig struct {
	configFile string
	cfg        *Config
	auditLog   string
	context    map[string]string
}

// WithConfigFile loads policy from the given YAML file instead of the
// default location.
func WithConfigFile(path string) InitOption {
	return func(c *initConfig) { c.configFile = path }
}

// WithConfig installs an explicit policy config, skipping file loading.
func WithConfig(cfg Config) InitOption {
	return func(c *initConfig) { c.cfg = &cfg }
}

// WithAuditLog sets the audit trail path, overriding the config.
func WithAuditLog(path string) InitOption {
	return func(c *initConfig) { c.auditLog = path }
}

// WithContextValue annotates the installed policy. Protected keys are
// rejected and fail Init.
func WithContextValue(key, value string) InitOption {
	return func(c *initConfig) {
		if c.context == nil {
			c.context = make(map[string]string)
		}
		c.context[key] = value
	}
}

// BufferOption configures a new buffer.
type BufferOption func(*bufferConfig)

type bufferConfig struct {
	level SecurityLevel
}

// WithSecurityLevel sets the buffer's trust tier. Defaults to
// LevelStandard.
func WithSecurityLevel(l SecurityLevel) BufferOption {
	return func(c *bufferConfig) { c.level = l }
}

// ValidatorOption overrides one gate parameter taken from the process
// policy.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	ctx *gate.Context
}

// WithAlpha overrides the complexity weight.
func WithAlpha(a float64) ValidatorOption {
	return func(c *validatorConfig) { c.ctx.Alpha = a }
}

// WithBeta overrides the divergence weight.
func WithBeta(b float64) ValidatorOption {
	return func(c *validatorConfig) { c.ctx.Beta = b }
}

// WithZoneLimit overrides the maximum acceptable zone.
func WithZoneLimit(z Zone) ValidatorOption {
	return func(c *validatorConfig) { c.ctx.ZoneLimit = z }
}

// WithCanonicalOnly overrides whether raw input must already be in
// canonical form.
func WithCanonicalOnly(on bool) ValidatorOption {
	return func(c *validatorConfig) { c.ctx.CanonicalOnly = on }
}
