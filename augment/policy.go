package augment

import (
	"math/rand"

	"github.com/pkg/errors"
)

// PolicySize is the size of the sampling multiset: a ratio of N means N
// replace markers out of PolicySize.
const PolicySize = 10

// Policy is the substitution sampling policy: a fixed multiset holding
// `ratio` replace markers and `PolicySize-ratio` keep markers, shuffled
// once at construction. Each substitution decision draws one element
// uniformly from the multiset, which is equivalent to an independent
// Bernoulli(ratio/PolicySize) trial per eligible token.
type Policy struct {
	draws []bool
}

// NewPolicy builds a policy for the given ratio, shuffling the multiset
// with rng. Ratio 0 never replaces; ratio PolicySize always replaces.
func NewPolicy(ratio int, rng *rand.Rand) (*Policy, error) {
	if ratio < 0 || ratio > PolicySize {
		return nil, errors.Errorf("substitution ratio must be in [0, %d], got %d", PolicySize, ratio)
	}
	draws := make([]bool, PolicySize)
	for i := 0; i < ratio; i++ {
		draws[i] = true
	}
	rng.Shuffle(len(draws), func(i, j int) {
		draws[i], draws[j] = draws[j], draws[i]
	})
	return &Policy{draws: draws}, nil
}

// Replace draws one marker uniformly from the multiset.
func (p *Policy) Replace(rng *rand.Rand) bool {
	return p.draws[rng.Intn(len(p.draws))]
}
