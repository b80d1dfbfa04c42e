// Package sampler performs the weighted random draw over a weight map.
package sampler

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// Result records one draw.
type Result struct {
	// ID is the chosen entry; empty when OK is false.
	ID string
	OK bool
	// Total is the sum of positive weights; Roll is the point drawn in [0, Total).
	// Both are in units of Scale.
	Total float64
	Roll  float64
	// Scale is 1 unless the raw sum overflows, in which case every weight was
	// divided by the largest one before summing.
	Scale float64
	// Eligible is the number of entries with a positive weight.
	Eligible int
}

// Record draws from w using src and returns the full draw record.
//
// Entries are visited in w's insertion order and the first whose running sum
// exceeds the roll is chosen, so a fixed src stream and a fixed map order
// reproduce the same result.
//
// Precondition: w and src must be non-nil.
// Postcondition: OK is false exactly when w has no positive weight; src is
// not consumed in that case.
func Record(w *weight.Map, src dice.Source) Result {
	pairs := w.Pairs()
	res := Result{Scale: 1}
	var largest float64
	for _, p := range pairs {
		if p.Weight > 0 {
			res.Total += p.Weight
			res.Eligible++
			largest = max(largest, p.Weight)
		}
	}
	if res.Eligible == 0 {
		return res
	}
	if math.IsInf(res.Total, 1) {
		res.Scale = largest
		res.Total = 0
		for _, p := range pairs {
			if p.Weight > 0 {
				res.Total += p.Weight / largest
			}
		}
	}
	res.Roll = src.Float64() * res.Total
	var sum float64
	last := ""
	for _, p := range pairs {
		if p.Weight <= 0 {
			continue
		}
		sum += p.Weight / res.Scale
		last = p.ID
		if sum > res.Roll {
			res.ID, res.OK = p.ID, true
			return res
		}
	}
	// Floating point rounding can leave the running sum a hair below the roll.
	res.ID, res.OK = last, true
	return res
}

// Draw returns the id chosen from w, or ok=false when nothing is eligible.
func Draw(w *weight.Map, src dice.Source) (id string, ok bool) {
	r := Record(w, src)
	return r.ID, r.OK
}

// Sampler binds a Source, and optionally a logger, for repeated draws.
type Sampler struct {
	src    dice.Source
	logger *zap.Logger
}

// New returns a Sampler drawing from src.
//
// Precondition: src must be non-nil.
func New(src dice.Source) *Sampler {
	return &Sampler{src: src, logger: zap.NewNop()}
}

// NewLogged returns a Sampler that logs each draw to logger at debug level.
//
// Precondition: src and logger must be non-nil.
func NewLogged(src dice.Source, logger *zap.Logger) *Sampler {
	return &Sampler{src: src, logger: logger}
}

// Draw implements engine.Drawer.
func (s *Sampler) Draw(w *weight.Map) (string, bool) {
	r := s.Record(w)
	return r.ID, r.OK
}

// Record draws from w and returns the full draw record.
func (s *Sampler) Record(w *weight.Map) Result {
	r := Record(w, s.src)
	s.logger.Debug("loot draw",
		zap.String("chosen", r.ID),
		zap.Bool("ok", r.OK),
		zap.Float64("total", r.Total),
		zap.Float64("roll", r.Roll),
		zap.Float64("scale", r.Scale),
		zap.Int("eligible", r.Eligible),
	)
	return r
}
