// Package gate runs buffers through the zero trust validation
// pipeline: context check, size check, canonicalization, hash
// recompute, cost classification, commit. The pipeline is ordered and
// terminal; the first failing step decides the error and no trust
// flag commits on any failure path.
package gate

import (
	"bytes"
	"sync/atomic"

	"github.com/bufgate/bufgate/internal/audit"
	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/canon"
	"github.com/bufgate/bufgate/internal/cost"
	"github.com/bufgate/bufgate/internal/metrics"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
	"github.com/bufgate/bufgate/internal/zone"
)

// Result reports a committed validation.
type Result struct {
	Cost     float64
	Zone     model.Zone
	Digest   audit.Digest
	Length   int
	FastPath bool
}

// Validator holds an immutable context copy and runs the pipeline.
// Safe for concurrent Validate calls on distinct buffers.
type Validator struct {
	ctx       Context
	weights   cost.Weights
	trail     *audit.Log
	pol       *policy.Policy
	destroyed atomic.Bool
}

// New builds a Validator. Construction is the enforcement point:
// a context or policy without zero trust fails here and there is no
// bypass path.
func New(ctx Context, trail *audit.Log, pol *policy.Policy) (*Validator, error) {
	if pol == nil {
		return nil, model.Errorf(model.CodeInvalidInput, "gate", "nil policy")
	}
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if !pol.ZeroTrust() {
		return nil, model.Errorf(model.CodeZeroTrustViolation, "gate", "process policy disables zero trust")
	}
	w := cost.Weights{Alpha: ctx.Alpha, Beta: ctx.Beta}
	if err := w.Check(); err != nil {
		return nil, err
	}
	return &Validator{ctx: ctx, weights: w, trail: trail, pol: pol}, nil
}

// Destroy retires the validator. Idempotent; Validate afterwards
// fails INVALID_INPUT.
func (v *Validator) Destroy() {
	v.destroyed.Store(true)
}

// Validate runs buf through the pipeline. On success the buffer
// carries cost, zone and trust flags; on failure the buffer keeps
// whatever state the failing step left visible and an audit entry
// names the rejection.
func (v *Validator) Validate(buf *buffer.Buffer) (Result, error) {
	// Step 1: context check.
	if v.destroyed.Load() {
		return v.fail(buf, model.Errorf(model.CodeInvalidInput, "gate", "validator destroyed"))
	}
	if buf == nil {
		return v.fail(nil, model.Errorf(model.CodeInvalidInput, "gate", "nil buffer"))
	}
	if !buf.Alive() {
		return v.fail(buf, model.Errorf(model.CodeInvalidInput, "gate", "buffer destroyed"))
	}
	if !v.pol.ZeroTrust() {
		return v.fail(buf, model.Errorf(model.CodeZeroTrustViolation, "gate", "process policy disables zero trust"))
	}
	if buf.Level() >= v.pol.RequiredLevel() && v.trail == nil {
		return v.fail(buf, model.Errorf(model.CodeAuditRequired, "gate",
			"%s buffers require an audit trail", buf.Level()))
	}

	// Step 2: size check.
	if buf.Length() == 0 {
		return v.fail(buf, model.Errorf(model.CodeInvalidInput, "gate", "empty buffer"))
	}
	if buf.Length() > model.MaxBufferSize {
		return v.fail(buf, model.Errorf(model.CodeBufferOverflow, "gate",
			"%d bytes exceeds maximum %d", buf.Length(), model.MaxBufferSize))
	}

	raw := buf.Bytes()

	// A buffer whose trust flags survived an earlier pass and whose
	// bytes still hash to the stored digest needs no second pass.
	if buf.Validated() && buf.Normalized() && buf.HasCanonicalDigest() &&
		audit.Sum(raw) == buf.Digest() {
		res := Result{
			Cost:     buf.Cost(),
			Zone:     buf.Zone(),
			Digest:   buf.Digest(),
			Length:   buf.Length(),
			FastPath: true,
		}
		v.record(buf, audit.OutcomePass, 0, res.Cost, res.Zone)
		metrics.RecordFastPath()
		metrics.RecordPass(res.Zone, res.Cost, res.Length)
		return res, nil
	}

	// Step 3: canonicalization.
	canonical, err := canon.Canonicalize(raw)
	if err != nil {
		return v.fail(buf, model.Wrap(model.CodeValidationFailed, "gate", "canonicalization", err))
	}
	if v.ctx.CanonicalOnly && !bytes.Equal(raw, canonical) {
		return v.fail(buf, model.Errorf(model.CodeValidationFailed, "gate", "payload is not in canonical form"))
	}

	// Step 4: hash recompute. SetData keeps the stored digest in
	// agreement with the canonical form, so a mismatch here is an
	// internal consistency fault.
	if audit.Sum(canonical) != buf.Digest() {
		return v.fail(buf, model.Errorf(model.CodeValidationFailed, "gate", "audit hash mismatch"))
	}

	// Step 5: cost and classification.
	feats := cost.Analyze(raw, canonical, v.ctx.EpsilonMin)
	c, err := cost.Evaluate(feats, v.weights, v.ctx.EpsilonMin)
	if err != nil {
		return v.fail(buf, err)
	}
	z := zone.Classify(c)
	buf.SetOutcome(c, z)
	if z > v.ctx.ZoneLimit {
		return v.fail(buf, model.Errorf(model.CodeSinphaseViolation, "gate",
			"cost %.6f classified %s beyond %s limit", c, z, v.ctx.ZoneLimit))
	}

	// Step 6: commit.
	buf.Commit()
	v.record(buf, audit.OutcomePass, 0, c, z)
	metrics.RecordPass(z, c, buf.Length())
	return Result{Cost: c, Zone: z, Digest: buf.Digest(), Length: buf.Length()}, nil
}

// fail records the rejection on the trail and in metrics, then
// returns the error unchanged.
func (v *Validator) fail(buf *buffer.Buffer, err error) (Result, error) {
	code, _ := model.CodeOf(err)
	var c float64
	var z model.Zone
	if buf != nil && buf.Alive() {
		c = buf.Cost()
		z = buf.Zone()
	}
	v.record(buf, audit.OutcomeFail, code, c, z)
	metrics.RecordFail(code)
	return Result{}, err
}

// record appends a validation entry when a trail is attached. Trail
// write problems never change the validation outcome.
func (v *Validator) record(buf *buffer.Buffer, outcome string, code model.Code, c float64, z model.Zone) {
	if v.trail == nil {
		return
	}
	e := audit.Entry{
		Op:      "validate",
		Outcome: outcome,
		Cost:    c,
		Context: v.pol.AuditContext(),
	}
	if code != 0 {
		e.Code = code.String()
	}
	if outcome == audit.OutcomePass {
		e.Zone = z.String()
	}
	if buf != nil && buf.Alive() {
		e.Digest = buf.Digest().String()
		e.Level = buf.Level().String()
	}
	_ = v.trail.Record(e)
}
