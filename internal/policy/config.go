package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bufgate/bufgate/internal/model"
)

// Weights holds the governance cost coefficients.
type Weights struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// AuditConfig selects the trail file and the security level above
// which validation refuses to run without one.
type AuditConfig struct {
	Log           string `yaml:"log"`
	RequiredLevel string `yaml:"required_level"`
}

// MetricsConfig selects the prometheus textfile target. Empty
// disables the export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// WatchConfig holds the daemon directories and watcher tuning.
type WatchConfig struct {
	Inbox      string `yaml:"inbox"`
	Outbox     string `yaml:"outbox"`
	State      string `yaml:"state"`
	Poll       bool   `yaml:"poll"`
	DebounceMS int    `yaml:"debounce_ms"`
}

// Config holds all configurable engine parameters.
type Config struct {
	ZeroTrust     bool          `yaml:"zero_trust"`
	CanonicalOnly bool          `yaml:"canonical_only"`
	Weights       Weights       `yaml:"weights"`
	EpsilonMin    float64       `yaml:"epsilon_min"`
	ZoneLimit     string        `yaml:"zone_limit"`
	Audit         AuditConfig   `yaml:"audit"`
	Metrics       MetricsConfig `yaml:"metrics"`
	Watch         WatchConfig   `yaml:"watch"`
}

// DefaultConfig returns the built-in engine configuration.
func DefaultConfig() *Config {
	return &Config{
		ZeroTrust:     true,
		CanonicalOnly: true,
		Weights: Weights{
			Alpha: model.DefaultAlpha,
			Beta:  model.DefaultBeta,
		},
		EpsilonMin: model.EpsilonMin,
		ZoneLimit:  "warning",
		Audit: AuditConfig{
			Log:           "",
			RequiredLevel: "critical",
		},
		Watch: WatchConfig{
			Inbox:      "inbox",
			Outbox:     "outbox",
			State:      "state",
			Poll:       false,
			DebounceMS: 300,
		},
	}
}

// Validate checks field constraints. Weight and epsilon faults are
// NUMERICAL_INSTABILITY, unparseable enums are INVALID_INPUT.
func (c *Config) Validate() error {
	w := c.Weights
	if math.IsNaN(w.Alpha) || math.IsNaN(w.Beta) ||
		math.IsInf(w.Alpha, 0) || math.IsInf(w.Beta, 0) {
		return model.Errorf(model.CodeNumericalInstability, "policy", "weights must be finite")
	}
	if w.Alpha < 0 || w.Beta < 0 {
		return model.Errorf(model.CodeNumericalInstability, "policy", "weights must be non-negative")
	}
	if w.Alpha+w.Beta > 1+model.WeightTolerance {
		return model.Errorf(model.CodeNumericalInstability, "policy", "weights sum %v exceeds 1", w.Alpha+w.Beta)
	}
	if math.IsNaN(c.EpsilonMin) || math.IsInf(c.EpsilonMin, 0) || c.EpsilonMin < 0 {
		return model.Errorf(model.CodeNumericalInstability, "policy", "epsilon_min must be finite and non-negative")
	}
	if _, err := model.ParseZone(c.ZoneLimit); err != nil {
		return model.Wrap(model.CodeInvalidInput, "policy", "zone_limit", err)
	}
	if _, err := model.ParseLevel(c.Audit.RequiredLevel); err != nil {
		return model.Wrap(model.CodeInvalidInput, "policy", "audit.required_level", err)
	}
	if c.Watch.DebounceMS < 0 {
		return model.Errorf(model.CodeInvalidInput, "policy", "watch.debounce_ms must not be negative")
	}
	return nil
}

// zoneLimit returns the parsed zone boundary. Call after Validate.
func (c *Config) zoneLimit() model.Zone {
	z, _ := model.ParseZone(c.ZoneLimit)
	return z
}

// requiredLevel returns the parsed audit level. Call after Validate.
func (c *Config) requiredLevel() model.SecurityLevel {
	l, _ := model.ParseLevel(c.Audit.RequiredLevel)
	return l
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.bufgate/policy.yaml. A missing file returns defaults. Unknown
// keys are rejected, not ignored.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw
// YAML bytes for audit context. When no file exists (defaults used),
// the hash covers empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".bufgate", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", model.Wrap(model.CodeInvalidInput, "policy", "read config", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields.
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, "", model.Wrap(model.CodeInvalidInput, "policy", "parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultYAML returns a commented starter config for init-policy.
func DefaultYAML() string {
	return `# bufgate policy configuration
# Generated by: bufgate init-policy

# Zero trust cannot be bypassed: setting this false does not disable
# validation, it makes every validator construction fail.
zero_trust: true

# Reject any payload whose stored bytes differ from the canonical
# form. The gate never rewrites content silently.
canonical_only: true

# Governance cost is alpha*complexity + beta*divergence.
# Both weights must be non-negative and sum to at most 1.
weights:
  alpha: 0.6
  beta: 0.4

# Costs below this floor collapse to exactly zero.
epsilon_min: 1.0e-12

# Hard classification limit: autonomous | warning | governance.
# Payloads classified past this zone are rejected.
zone_limit: warning

audit:
  # Hash-chained JSONL trail. Empty disables the trail; buffers at
  # required_level and above then refuse to validate.
  log: ""
  required_level: critical

metrics:
  # Prometheus textfile target. Empty disables the export.
  textfile: ""

# Directories for the watch daemon.
watch:
  inbox: inbox
  outbox: outbox
  state: state
  poll: false
  debounce_ms: 300
`
}
