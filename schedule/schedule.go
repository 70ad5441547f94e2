// Package schedule implements the warmup / inverse-square-root learning
// rate schedule used for fine-tuning.
package schedule

import (
	"math"

	"github.com/pkg/errors"
)

// Optimizer is the boundary to the parameter updater. NumGroups reports
// the number of parameter groups (e.g. pretrained body vs. task head),
// each with its own base learning rate; SetGroupRate overrides a group's
// current rate before Step applies the accumulated gradients.
type Optimizer interface {
	NumGroups() int
	SetGroupRate(group int, rate float64)
	Step()
	ZeroGrad()
}

// ReverseSqrt ramps each group's rate linearly from 0 to its base rate
// over nWarmup update calls, then decays it proportionally to the inverse
// square root of the step counter. Per group i:
//
//	decayFactor_i = base_i * sqrt(nWarmup)
//	stepSize_i    = base_i / nWarmup
//	rate_i(n)     = n * stepSize_i          if n < nWarmup
//	              = decayFactor_i / sqrt(n) otherwise
//
// The two branches disagree by one step at n = nWarmup-1, a known
// discontinuity kept for compatibility with existing training runs.
//
// A ReverseSqrt is driven by exactly one goroutine.
type ReverseSqrt struct {
	opt         Optimizer
	nWarmup     int
	counter     int
	decayFactor []float64
	stepSize    []float64
	rates       []float64
}

// NewReverseSqrt wraps opt with the schedule. baseRates must have one
// entry per optimizer group.
func NewReverseSqrt(opt Optimizer, baseRates []float64, nWarmup int) (*ReverseSqrt, error) {
	if nWarmup <= 0 {
		return nil, errors.Errorf("warmup steps must be > 0, got %d", nWarmup)
	}
	if len(baseRates) != opt.NumGroups() {
		return nil, errors.Errorf("got %d base rates for %d optimizer groups", len(baseRates), opt.NumGroups())
	}
	s := &ReverseSqrt{
		opt:         opt,
		nWarmup:     nWarmup,
		decayFactor: make([]float64, len(baseRates)),
		stepSize:    make([]float64, len(baseRates)),
		rates:       make([]float64, len(baseRates)),
	}
	for i, base := range baseRates {
		s.decayFactor[i] = base * math.Sqrt(float64(nWarmup))
		s.stepSize[i] = base / float64(nWarmup)
	}
	return s, nil
}

// StepAndUpdate advances the step counter, applies the scheduled rate to
// every group, and runs the optimizer step.
func (s *ReverseSqrt) StepAndUpdate() {
	s.counter++
	for i := range s.rates {
		if s.counter < s.nWarmup {
			s.rates[i] = float64(s.counter) * s.stepSize[i]
		} else {
			s.rates[i] = s.decayFactor[i] / math.Sqrt(float64(s.counter))
		}
		s.opt.SetGroupRate(i, s.rates[i])
	}
	s.opt.Step()
}

// ZeroGrad clears the optimizer's accumulated gradients.
func (s *ReverseSqrt) ZeroGrad() { s.opt.ZeroGrad() }

// Steps reports how many update calls have been made.
func (s *ReverseSqrt) Steps() int { return s.counter }

// Rates returns the per-group rates applied by the latest StepAndUpdate.
// All zeros before the first call.
func (s *ReverseSqrt) Rates() []float64 {
	out := make([]float64, len(s.rates))
	copy(out, s.rates)
	return out
}
