package train

// EarlyStopper tracks the best evaluation F1 and the number of
// consecutive non-improving evaluations. Exhausting the patience is a
// normal termination condition, not an error.
type EarlyStopper struct {
	maxPatience int
	patience    int
	bestF1      float64
}

// DefaultPatience matches the fine-tuning runs this schedule was tuned on.
const DefaultPatience = 3

func NewEarlyStopper(maxPatience int) *EarlyStopper {
	return &EarlyStopper{maxPatience: maxPatience}
}

// Observe records one evaluation result. improved is true when f1 beats
// the best seen so far (strictly); stop is true once more than
// maxPatience consecutive evaluations failed to improve.
func (s *EarlyStopper) Observe(f1 float64) (improved, stop bool) {
	if f1 > s.bestF1 {
		s.bestF1 = f1
		s.patience = 0
		return true, false
	}
	s.patience++
	return false, s.patience > s.maxPatience
}

// BestF1 reports the best F1 observed so far, 0 before any observation.
func (s *EarlyStopper) BestF1() float64 { return s.bestF1 }
