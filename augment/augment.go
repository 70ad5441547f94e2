package augment

import (
	"math/rand"
	"strings"
)

// CharRange is an inclusive character range in the pre-mutation context
// that substitution must not touch (the current answer span). A context
// token is protected when its starting offset falls inside the range.
type CharRange struct {
	Start int
	End   int
}

func (r CharRange) contains(pos int) bool { return pos >= r.Start && pos <= r.End }

// Augmenter applies randomized lexical substitution to a token sequence.
// It is a pure function over its inputs plus the injected random source:
// callers that parallelize across examples must hand each worker its own
// seeded *rand.Rand for reproducible output.
type Augmenter struct {
	Table  Table
	Policy *Policy
}

// Apply rewrites tokens according to the table and policy and re-joins
// them with single spaces. Original multi-space formatting is not
// preserved: the single-space re-join is a deliberate normalization, and
// Relocate assumes the same normalization on the answer side.
//
// protected is the answer's character range for context-side augmentation;
// pass nil for question-side augmentation, which has no protected range.
func (a *Augmenter) Apply(tokens []Token, protected *CharRange, rng *rand.Rand) string {
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
		if protected != nil && protected.contains(tok.CharStart) {
			continue
		}
		candidates, ok := a.Table.Candidates(tok.Text)
		if !ok {
			continue
		}
		if a.Policy.Replace(rng) {
			texts[i] = candidates[rng.Intn(len(candidates))]
		}
	}
	return strings.Join(texts, " ")
}
