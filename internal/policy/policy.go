// Package policy holds the immutable process policy, its YAML
// configuration, and the exactly-once install lifecycle backing the
// embedding surface.
//
// A Policy is built once and never changes: the zero-trust stance and
// the integrity verdict are plain unexported fields with getters and
// no setters. The only mutable surface is the annotation map, which
// flows into audit entries and cannot reach the protected fields.
package policy

import (
	"sort"
	"strings"
	"sync"

	"github.com/bufgate/bufgate/internal/model"
)

// protectedKeys are annotation keys SetContext refuses: the integrity
// marker plus every config field name, so annotations can never
// impersonate configuration.
var protectedKeys = map[string]struct{}{
	"integrity":      {},
	"zero_trust":     {},
	"canonical_only": {},
	"weights":        {},
	"alpha":          {},
	"beta":           {},
	"epsilon_min":    {},
	"zone_limit":     {},
	"audit":          {},
	"log":            {},
	"required_level": {},
	"metrics":        {},
	"textfile":       {},
	"watch":          {},
	"inbox":          {},
	"outbox":         {},
	"state":          {},
	"poll":           {},
	"debounce_ms":    {},
}

// Policy is the validated, immutable engine policy.
type Policy struct {
	cfg            Config
	limit          model.Zone
	required       model.SecurityLevel
	integrityValid bool

	mu          sync.RWMutex
	annotations map[string]string
}

// New validates cfg and freezes it into a Policy.
func New(cfg Config, integrityValid bool) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Policy{
		cfg:            cfg,
		limit:          cfg.zoneLimit(),
		required:       cfg.requiredLevel(),
		integrityValid: integrityValid,
		annotations:    make(map[string]string),
	}, nil
}

// ZeroTrust reports the configured zero-trust stance. Note that the
// gate rejects validator construction when this is false; the field
// exists so the refusal can be observed, not to offer a bypass.
func (p *Policy) ZeroTrust() bool { return p.cfg.ZeroTrust }

// CanonicalOnly reports whether non-canonical payloads are rejected.
func (p *Policy) CanonicalOnly() bool { return p.cfg.CanonicalOnly }

// Alpha returns the complexity weight.
func (p *Policy) Alpha() float64 { return p.cfg.Weights.Alpha }

// Beta returns the divergence weight.
func (p *Policy) Beta() float64 { return p.cfg.Weights.Beta }

// EpsilonMin returns the cost floor.
func (p *Policy) EpsilonMin() float64 { return p.cfg.EpsilonMin }

// ZoneLimit returns the hard classification boundary.
func (p *Policy) ZoneLimit() model.Zone { return p.limit }

// RequiredLevel returns the security level at and above which
// validation requires an attached audit trail.
func (p *Policy) RequiredLevel() model.SecurityLevel { return p.required }

// IntegrityValid reports the binary self-check verdict recorded at
// construction.
func (p *Policy) IntegrityValid() bool { return p.integrityValid }

// Config returns a copy of the underlying configuration.
func (p *Policy) Config() Config { return p.cfg }

// SetContext records an annotation pair for audit context. Protected
// keys are rejected with ZERO_TRUST_VIOLATION, empty keys with
// INVALID_INPUT.
func (p *Policy) SetContext(key, value string) error {
	if key == "" {
		return model.Errorf(model.CodeInvalidInput, "policy", "empty context key")
	}
	if _, protected := protectedKeys[strings.ToLower(key)]; protected {
		return model.Errorf(model.CodeZeroTrustViolation, "policy", "context key %q is protected", key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.annotations[key] = value
	return nil
}

// ContextValue returns a previously recorded annotation.
func (p *Policy) ContextValue(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.annotations[key]
	return v, ok
}

// AuditContext renders the integrity verdict plus all annotations as
// a deterministic comma-joined k=v string for audit entries.
func (p *Policy) AuditContext() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.annotations))
	for k := range p.annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("integrity=")
	if p.integrityValid {
		b.WriteString("valid")
	} else {
		b.WriteString("invalid")
	}
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.annotations[k])
	}
	return b.String()
}
