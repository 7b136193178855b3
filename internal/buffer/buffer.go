// Package buffer provides fixed-capacity payload buffers backed by
// locked memory regions. A Buffer owns exactly one native region: it
// is mlocked, guard-paged, frozen read-only between writes, and wiped
// on destroy. Buffers are single-writer; callers serialize access, and
// the hot path takes no locks.
package buffer

import (
	"github.com/awnumar/memguard"

	"github.com/bufgate/bufgate/internal/audit"
	"github.com/bufgate/bufgate/internal/canon"
	"github.com/bufgate/bufgate/internal/model"
)

// Buffer holds one payload of at most model.MaxBufferSize bytes along
// with its audit digest and governance state.
//
// INVARIANT: validated is never true while normalized is false.
// INVARIANT: costValue and zone change only together.
type Buffer struct {
	region      *memguard.LockedBuffer
	length      int
	digest      audit.Digest
	canonDigest bool
	level       model.SecurityLevel
	validated   bool
	normalized  bool
	costValue   float64
	zone        model.Zone
	destroyed   bool
}

// New allocates a buffer at the given security level. The region is
// allocated eagerly at full capacity so capacity can never shrink or
// grow behind the audit hash.
func New(level model.SecurityLevel) *Buffer {
	region := memguard.NewBuffer(model.MaxBufferSize)
	region.Freeze()
	return &Buffer{region: region, level: level}
}

// alive reports whether the native region is still usable. The region
// can die without Destroy being called on this handle when the process
// purges locked memory during cleanup.
func (b *Buffer) alive() bool {
	return !b.destroyed && b.region.IsAlive()
}

// Alive reports whether the buffer can still be used.
func (b *Buffer) Alive() bool { return b.alive() }

// SetData replaces the buffer content. Oversized payloads fail with
// BufferOverflow and leave every field of the previous state intact;
// content is never truncated to fit. On success the trust flags reset
// before the new content is hashed, and the audit digest is recomputed
// over the canonical form (or over the raw bytes when the content has
// no canonical form, in which case validation will later reject it).
func (b *Buffer) SetData(p []byte) error {
	const op = "buffer.SetData"
	if !b.alive() {
		return model.Errorf(model.CodeInvalidInput, op, "buffer destroyed")
	}
	if len(p) > model.MaxBufferSize {
		return model.Errorf(model.CodeBufferOverflow, op,
			"%d bytes exceeds capacity %d", len(p), model.MaxBufferSize)
	}

	b.validated = false
	b.normalized = false
	b.costValue = 0
	b.zone = model.ZoneAutonomous

	b.region.Melt()
	data := b.region.Bytes()
	copy(data, p)
	for i := len(p); i < len(data); i++ {
		data[i] = 0
	}
	b.region.Freeze()
	b.length = len(p)

	canonical, err := canon.Canonicalize(p)
	if err != nil {
		b.digest = audit.Sum(p)
		b.canonDigest = false
		return nil
	}
	b.digest = audit.Sum(canonical)
	b.canonDigest = true
	return nil
}

// Bytes returns a copy of the stored content. The locked region never
// escapes through this method.
func (b *Buffer) Bytes() []byte {
	if !b.alive() || b.length == 0 {
		return nil
	}
	out := make([]byte, b.length)
	copy(out, b.region.Bytes()[:b.length])
	return out
}

// Length returns the stored content length in bytes.
func (b *Buffer) Length() int {
	if !b.alive() {
		return 0
	}
	return b.length
}

// Digest returns the audit digest of the stored content.
func (b *Buffer) Digest() audit.Digest { return b.digest }

// HasCanonicalDigest reports whether the digest was computed over the
// canonical form of the content.
func (b *Buffer) HasCanonicalDigest() bool { return b.canonDigest }

// Level returns the security level fixed at creation.
func (b *Buffer) Level() model.SecurityLevel { return b.level }

// Validated reports whether the content passed a full validation.
func (b *Buffer) Validated() bool { return b.validated }

// Normalized reports whether the content was confirmed canonical.
func (b *Buffer) Normalized() bool { return b.normalized }

// Cost returns the governance cost. Meaningful only after a cost pass.
func (b *Buffer) Cost() float64 { return b.costValue }

// Zone returns the governance zone paired with Cost.
func (b *Buffer) Zone() model.Zone { return b.zone }

// SetOutcome stores a computed cost/zone pair. The pair always lands
// together so no observer sees a zone from one pass and a cost from
// another.
func (b *Buffer) SetOutcome(cost float64, z model.Zone) {
	b.costValue = cost
	b.zone = z
}

// Commit marks the content trusted after a fully successful pipeline
// run. Normalized is set before validated so the trust invariant holds
// at every instant.
func (b *Buffer) Commit() {
	b.normalized = true
	b.validated = true
}

// Destroy wipes and releases the native region. Idempotent: second and
// later calls are no-ops. After Destroy the buffer rejects all use.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.length = 0
	b.validated = false
	b.normalized = false
	b.costValue = 0
	b.zone = model.ZoneAutonomous
	b.digest = ""
	b.canonDigest = false
	b.region.Destroy()
}
