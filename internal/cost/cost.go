// Package cost computes the governance cost of buffer content from two
// structural signals: how complex the canonical form is, and how far
// the stored form diverges from it. The computation is pure and
// bit-for-bit reproducible: fixed accumulation order, no maps, no
// clocks.
package cost

import (
	"math"

	"github.com/bufgate/bufgate/internal/model"
)

// Features are the structural signals feeding the cost function, each
// in [0,1].
type Features struct {
	// Complexity is the Shannon entropy of the canonical byte
	// histogram in bits per byte, scaled by 1/8.
	Complexity float64

	// Divergence is the Jensen-Shannon divergence (log2 base, bounded
	// by 1) between the stored and canonical byte distributions. Zero
	// when the stored form is already canonical.
	Divergence float64
}

// Weights combine the two signals into a single cost.
type Weights struct {
	Alpha float64 // complexity weight
	Beta  float64 // divergence weight
}

// DefaultWeights returns the engine defaults.
func DefaultWeights() Weights {
	return Weights{Alpha: model.DefaultAlpha, Beta: model.DefaultBeta}
}

// Check rejects weights outside the admissible region: each
// non-negative and finite, alpha+beta at most 1 plus the shared
// tolerance.
func (w Weights) Check() error {
	if math.IsNaN(w.Alpha) || math.IsNaN(w.Beta) ||
		w.Alpha < 0 || w.Beta < 0 ||
		w.Alpha+w.Beta > 1+model.WeightTolerance {
		return model.Errorf(model.CodeNumericalInstability, "cost.Weights",
			"alpha=%g beta=%g outside the admissible region", w.Alpha, w.Beta)
	}
	return nil
}

// Analyze derives the feature signals for a stored payload and its
// canonical form. Both slices may alias; neither is modified.
func Analyze(stored, canonical []byte, eps float64) Features {
	p := distribution(stored)
	q := distribution(canonical)
	return Features{
		Complexity: entropyPerByte(q),
		Divergence: jensenShannon(p, q, eps),
	}
}

// Evaluate combines the signals under the given weights. Values below
// eps collapse to exactly zero. Non-finite or out-of-range results are
// NumericalInstability, never a silently clamped cost.
func Evaluate(f Features, w Weights, eps float64) (float64, error) {
	if err := w.Check(); err != nil {
		return 0, err
	}
	if !inUnit(f.Complexity) || !inUnit(f.Divergence) {
		return 0, model.Errorf(model.CodeNumericalInstability, "cost.Evaluate",
			"feature signals out of range: complexity=%g divergence=%g", f.Complexity, f.Divergence)
	}
	c := w.Alpha*f.Complexity + w.Beta*f.Divergence
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c > 1+model.WeightTolerance {
		return 0, model.Errorf(model.CodeNumericalInstability, "cost.Evaluate",
			"cost %g outside [0,1]", c)
	}
	if c < eps {
		c = 0
	}
	return c, nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// distribution builds the normalized byte-value histogram of p. An
// empty payload yields the zero distribution.
func distribution(p []byte) *[256]float64 {
	var d [256]float64
	if len(p) == 0 {
		return &d
	}
	var counts [256]int
	for _, c := range p {
		counts[c]++
	}
	n := float64(len(p))
	for i := 0; i < 256; i++ {
		d[i] = float64(counts[i]) / n
	}
	return &d
}

// entropyPerByte accumulates Shannon entropy in fixed byte-value order
// and scales bits to [0,1].
func entropyPerByte(d *[256]float64) float64 {
	var h float64
	for i := 0; i < 256; i++ {
		if p := d[i]; p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h / 8
}

// jensenShannon computes JSD(P||Q) against the mixture M=(P+Q)/2 in
// log2 base. The mixture is floored at eps before the log; the result
// is pinned into [0,1] at the numeric boundary.
func jensenShannon(p, q *[256]float64, eps float64) float64 {
	var d float64
	for i := 0; i < 256; i++ {
		m := (p[i] + q[i]) / 2
		if m < eps {
			m = eps
		}
		if p[i] > 0 {
			d += 0.5 * p[i] * math.Log2(p[i]/m)
		}
		if q[i] > 0 {
			d += 0.5 * q[i] * math.Log2(q[i]/m)
		}
	}
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
