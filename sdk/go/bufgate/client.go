package bufgate

import (
	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/integrity"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

const sdkVersion = "1.0.0"

// Version returns the engine's semantic version.
func Version() string { return sdkVersion }

// Init installs the process policy and opens the configured audit
// trail. Exactly one Init may be active; a second call without an
// intervening Cleanup fails with ZERO_TRUST_VIOLATION.
func Init(opts ...InitOption) error {
	var ic initConfig
	for _, o := range opts {
		o(&ic)
	}

	var cfg policy.Config
	var hash string
	if ic.cfg != nil {
		cfg = ic.cfg.toInternal()
	} else {
		loaded, h, err := policy.LoadWithHash(ic.configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
		hash = h
	}
	if ic.auditLog != "" {
		cfg.Audit.Log = ic.auditLog
	}

	integrityValid := integrity.Verify() == nil

	p, err := policy.Init(cfg, integrityValid)
	if err != nil {
		return err
	}

	if hash != "" {
		_ = p.SetContext("config_hash", hash)
	}
	for k, v := range ic.context {
		if err := p.SetContext(k, v); err != nil {
			_ = policy.Cleanup()
			return err
		}
	}
	return nil
}

// Cleanup records the final trail entry, releases the process policy,
// and purges locked memory. Idempotent.
func Cleanup() error { return policy.Cleanup() }

// IsZeroTrustEnforced reports whether an installed process policy
// enforces zero trust.
func IsZeroTrustEnforced() bool {
	p := policy.Current()
	return p != nil && p.ZeroTrust()
}

// Buffer is a locked payload staging area. Not safe for concurrent
// use; create one per goroutine.
type Buffer struct {
	inner *buffer.Buffer
}

// NewBuffer creates a buffer at the given security level. Requires a
// prior Init.
func NewBuffer(opts ...BufferOption) (*Buffer, error) {
	if policy.Current() == nil {
		return nil, model.Errorf(model.CodeZeroTrustViolation, "sdk", "Init required before NewBuffer")
	}
	bc := bufferConfig{level: LevelStandard}
	for _, o := range opts {
		o(&bc)
	}
	return &Buffer{inner: buffer.New(bc.level)}, nil
}

// SetData stages a payload, computing its canonical digest and
// resetting any previous validation state.
func (b *Buffer) SetData(p []byte) error { return b.inner.SetData(p) }

// Destroy wipes and unlocks the buffer memory. Idempotent.
func (b *Buffer) Destroy() { b.inner.Destroy() }

// Report summarizes the buffer after a successful validation. Before
// one it fails with AUDIT_REQUIRED.
func (b *Buffer) Report() (Report, error) {
	if !b.inner.Alive() {
		return Report{}, model.Errorf(model.CodeInvalidInput, "sdk", "buffer destroyed")
	}
	if !b.inner.Validated() {
		return Report{}, model.Errorf(model.CodeAuditRequired, "sdk", "report requires a validated buffer")
	}
	return Report{
		Digest: b.inner.Digest().String(),
		Cost:   b.inner.Cost(),
		Zone:   b.inner.Zone(),
		Length: b.inner.Length(),
		Level:  b.inner.Level(),
	}, nil
}

// Validator runs the gate pipeline. Safe for concurrent use across
// distinct buffers.
type Validator struct {
	inner *gate.Validator
}

// NewValidator builds a validator from the process policy, with
// per-validator overrides applied on top. Requires a prior Init.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	pol := policy.Current()
	if pol == nil {
		return nil, model.Errorf(model.CodeZeroTrustViolation, "sdk", "Init required before NewValidator")
	}
	ctx := gate.FromPolicy(pol)
	vc := validatorConfig{ctx: &ctx}
	for _, o := range opts {
		o(&vc)
	}
	v, err := gate.New(ctx, policy.Trail(), pol)
	if err != nil {
		return nil, err
	}
	return &Validator{inner: v}, nil
}

// Destroy retires the validator. Subsequent Validate calls fail.
func (v *Validator) Destroy() { v.inner.Destroy() }

// Validate runs the full gate over the staged payload and returns the
// outcome. Rejections carry a Code recoverable via CodeOf.
func (v *Validator) Validate(b *Buffer) (Result, error) {
	if b == nil {
		return Result{}, model.Errorf(model.CodeInvalidInput, "sdk", "nil buffer")
	}
	res, err := v.inner.Validate(b.inner)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Cost:     res.Cost,
		Zone:     res.Zone,
		Digest:   res.Digest.String(),
		Length:   res.Length,
		FastPath: res.FastPath,
	}, nil
}
