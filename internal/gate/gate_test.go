package gate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bufgate/bufgate/internal/audit"
	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/canon"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

func testPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(*policy.DefaultConfig(), true)
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	return p
}

func newTestValidator(t *testing.T, ctx Context) *Validator {
	t.Helper()
	v, err := New(ctx, nil, testPolicy(t))
	if err != nil {
		t.Fatalf("gate.New: %v", err)
	}
	t.Cleanup(v.Destroy)
	return v
}

func newTestBuffer(t *testing.T, level model.SecurityLevel, payload string) *buffer.Buffer {
	t.Helper()
	b := buffer.New(level)
	t.Cleanup(b.Destroy)
	if err := b.SetData([]byte(payload)); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	return b
}

func TestCanonicalPayloadValidates(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := newTestBuffer(t, model.LevelStandard, "hello world")

	res, err := v.Validate(b)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Zone != model.ZoneAutonomous {
		t.Errorf("expected AUTONOMOUS, got %v", res.Zone)
	}
	if res.Cost <= 0 || res.Cost > 0.5 {
		t.Errorf("expected cost in (0, 0.5], got %v", res.Cost)
	}
	if !b.Validated() || !b.Normalized() {
		t.Error("expected trust flags to commit")
	}
	if res.Digest != audit.Sum([]byte("hello world")) {
		t.Error("expected the canonical digest in the result")
	}
}

func TestNonCanonicalPayloadRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := newTestBuffer(t, model.LevelStandard, "Hello  World")

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if b.Validated() || b.Normalized() {
		t.Error("trust flags must not commit on rejection")
	}
}

func TestEmptyBufferRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := buffer.New(model.LevelStandard)
	t.Cleanup(b.Destroy)

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for empty buffer, got %v", err)
	}
}

func TestMalformedStructureRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := newTestBuffer(t, model.LevelStandard, `{"a":}`)

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if !errors.Is(err, canon.ErrMalformedStructure) {
		t.Errorf("expected the malformed-structure cause, got %v", err)
	}
}

func TestInvalidEncodingRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := buffer.New(model.LevelStandard)
	t.Cleanup(b.Destroy)
	if err := b.SetData([]byte{0xff, 0xfe, 0x01}); err != nil {
		t.Fatal(err)
	}

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if !errors.Is(err, canon.ErrInvalidEncoding) {
		t.Errorf("expected the invalid-encoding cause, got %v", err)
	}
}

func TestZeroTrustRequiredAtConstruction(t *testing.T) {
	ctx := DefaultContext()
	ctx.ZeroTrustEnforced = false
	_, err := New(ctx, nil, testPolicy(t))
	if !model.IsCode(err, model.CodeZeroTrustViolation) {
		t.Fatalf("expected ZERO_TRUST_VIOLATION, got %v", err)
	}
}

func TestPolicyWithoutZeroTrustRejected(t *testing.T) {
	cfg := *policy.DefaultConfig()
	cfg.ZeroTrust = false
	p, err := policy.New(cfg, true)
	if err != nil {
		t.Fatalf("the stance is representable in config, got %v", err)
	}
	if _, err := New(DefaultContext(), nil, p); !model.IsCode(err, model.CodeZeroTrustViolation) {
		t.Fatalf("expected ZERO_TRUST_VIOLATION, got %v", err)
	}
}

func TestUnstableWeightsRejectedAtConstruction(t *testing.T) {
	ctx := DefaultContext()
	ctx.Alpha, ctx.Beta = 0.9, 0.9
	_, err := New(ctx, nil, testPolicy(t))
	if !model.IsCode(err, model.CodeNumericalInstability) {
		t.Fatalf("expected NUMERICAL_INSTABILITY, got %v", err)
	}
}

func TestNilPolicyRejectedAtConstruction(t *testing.T) {
	_, err := New(DefaultContext(), nil, nil)
	if !model.IsCode(err, model.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestCriticalBufferRequiresTrail(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := newTestBuffer(t, model.LevelCritical, "hello world")

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeAuditRequired) {
		t.Fatalf("expected AUDIT_REQUIRED without a trail, got %v", err)
	}

	trail, err := audit.Open(filepath.Join(t.TempDir(), "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer trail.Close()

	vt, err := New(DefaultContext(), trail, testPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	defer vt.Destroy()

	if _, err := vt.Validate(b); err != nil {
		t.Fatalf("expected the trail to satisfy the requirement, got %v", err)
	}
}

func TestDivergentPayloadClassifiedGovernance(t *testing.T) {
	ctx := DefaultContext()
	ctx.CanonicalOnly = false
	v := newTestValidator(t, ctx)

	payload := strings.Repeat("ABCDEFGHIJKLMNOPQRSTUVWXYZ", 8)
	b := newTestBuffer(t, model.LevelStandard, payload)

	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeSinphaseViolation) {
		t.Fatalf("expected SINPHASE_VIOLATION, got %v", err)
	}
	if b.Zone() != model.ZoneGovernance {
		t.Errorf("expected the GOVERNANCE outcome stored, got %v", b.Zone())
	}
	if b.Cost() <= 0.6 {
		t.Errorf("expected stored cost beyond 0.6, got %v", b.Cost())
	}
	if b.Validated() || b.Normalized() {
		t.Error("trust flags must not commit past the zone limit")
	}
}

func TestWarningZoneWithinLimitPasses(t *testing.T) {
	ctx := DefaultContext()
	ctx.Alpha, ctx.Beta = 1, 0
	v := newTestValidator(t, ctx)

	b := newTestBuffer(t, model.LevelStandard, "abcdefghijklmnopqrstuvwxyz")
	res, err := v.Validate(b)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Zone != model.ZoneWarning {
		t.Fatalf("expected WARNING, got %v (cost %v)", res.Zone, res.Cost)
	}
	if !b.Validated() {
		t.Error("WARNING within the limit must commit")
	}
}

func TestZoneBeyondCallerLimitRejected(t *testing.T) {
	ctx := DefaultContext()
	ctx.Alpha, ctx.Beta = 1, 0
	ctx.ZoneLimit = model.ZoneAutonomous
	v := newTestValidator(t, ctx)

	b := newTestBuffer(t, model.LevelStandard, "abcdefghijklmnopqrstuvwxyz")
	_, err := v.Validate(b)
	if !model.IsCode(err, model.CodeSinphaseViolation) {
		t.Fatalf("expected SINPHASE_VIOLATION beyond AUTONOMOUS limit, got %v", err)
	}
	if b.Zone() != model.ZoneWarning {
		t.Errorf("expected the WARNING outcome stored, got %v", b.Zone())
	}
}

func TestFastPathOnRevalidation(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := newTestBuffer(t, model.LevelStandard, "hello world")

	first, err := v.Validate(b)
	if err != nil {
		t.Fatal(err)
	}
	if first.FastPath {
		t.Fatal("first pass must run the full pipeline")
	}

	second, err := v.Validate(b)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FastPath {
		t.Fatal("expected the second pass to short-circuit")
	}
	if second.Cost != first.Cost || second.Zone != first.Zone {
		t.Errorf("expected identical outcome, got %v/%v then %v/%v",
			first.Cost, first.Zone, second.Cost, second.Zone)
	}

	// Rewriting the same bytes resets trust, so the next pass is full
	// again.
	if err := b.SetData([]byte("hello world")); err != nil {
		t.Fatal(err)
	}
	third, err := v.Validate(b)
	if err != nil {
		t.Fatal(err)
	}
	if third.FastPath {
		t.Fatal("SetData must force a full pass")
	}
	if math.Float64bits(third.Cost) != math.Float64bits(first.Cost) {
		t.Error("expected bit-identical cost across full passes")
	}
}

func TestValidateAfterDestroy(t *testing.T) {
	v, err := New(DefaultContext(), nil, testPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	b := newTestBuffer(t, model.LevelStandard, "hello world")

	v.Destroy()
	v.Destroy()

	if _, err := v.Validate(b); !model.IsCode(err, model.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT after Destroy, got %v", err)
	}
}

func TestDestroyedBufferRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	b := buffer.New(model.LevelStandard)
	if err := b.SetData([]byte("hello world")); err != nil {
		t.Fatal(err)
	}
	b.Destroy()

	if _, err := v.Validate(b); !model.IsCode(err, model.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a destroyed buffer, got %v", err)
	}
}

func TestNilBufferRejected(t *testing.T) {
	v := newTestValidator(t, DefaultContext())
	if _, err := v.Validate(nil); !model.IsCode(err, model.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for nil buffer, got %v", err)
	}
}

func TestAuditEntriesOnPassAndFail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	trail, err := audit.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}

	v, err := New(DefaultContext(), trail, testPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	good := newTestBuffer(t, model.LevelStandard, "hello world")
	if _, err := v.Validate(good); err != nil {
		t.Fatal(err)
	}
	bad := newTestBuffer(t, model.LevelStandard, "Not Canonical")
	if _, err := v.Validate(bad); err == nil {
		t.Fatal("expected the second payload to fail")
	}
	if err := trail.Close(); err != nil {
		t.Fatal(err)
	}

	res := audit.Verify(logPath)
	if !res.Valid || res.Lines != 2 {
		t.Fatalf("expected a valid 2-entry chain, got valid=%v lines=%d err=%v", res.Valid, res.Lines, res.Error)
	}

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Op != "validate" || entries[0].Outcome != audit.OutcomePass {
		t.Errorf("expected a pass entry first, got %+v", entries[0])
	}
	if entries[0].Zone != "AUTONOMOUS" {
		t.Errorf("expected the zone on the pass entry, got %q", entries[0].Zone)
	}
	if entries[1].Outcome != audit.OutcomeFail || entries[1].Code != "VALIDATION_FAILED" {
		t.Errorf("expected a coded fail entry second, got %+v", entries[1])
	}
	if entries[1].Context != "integrity=valid" {
		t.Errorf("expected policy context on entries, got %q", entries[1].Context)
	}
}

func TestRevalidationIsDeterministic(t *testing.T) {
	payload := "the quick brown fox jumps over the lazy dog"

	run := func() float64 {
		v := newTestValidator(t, DefaultContext())
		b := newTestBuffer(t, model.LevelStandard, payload)
		res, err := v.Validate(b)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		return res.Cost
	}

	first := run()
	second := run()
	if math.Float64bits(first) != math.Float64bits(second) {
		t.Fatalf("expected bit-identical cost, got %x and %x",
			math.Float64bits(first), math.Float64bits(second))
	}
}

func TestCanonicalOnlyOffAllowsDivergence(t *testing.T) {
	ctx := DefaultContext()
	ctx.CanonicalOnly = false
	v := newTestValidator(t, ctx)

	// Mixed case but low divergence and complexity: must pass even
	// though the stored bytes differ from the canonical form.
	b := newTestBuffer(t, model.LevelStandard, "Hello world")
	res, err := v.Validate(b)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	canonical, err := canon.Canonicalize([]byte("Hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(canonical, []byte("hello world")) {
		t.Fatalf("unexpected canonical form %q", canonical)
	}
	if res.Digest != audit.Sum(canonical) {
		t.Error("digest must cover the canonical form, not the stored bytes")
	}
	if !b.Validated() {
		t.Error("expected trust flags to commit")
	}
}
