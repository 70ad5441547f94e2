package features

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"github.com/xlingqa/spanalign/augment"
	"github.com/xlingqa/spanalign/squad"
	"github.com/xlingqa/spanalign/tokenizers/api"
	"k8s.io/klog/v2"
)

// Pipeline turns examples into features. The augmenter runs on the
// training path only; with an empty substitution table it degrades to the
// pure whitespace normalization the rest of the pipeline assumes.
type Pipeline struct {
	Tokenizer    api.PairTokenizer
	Augmenter    *augment.Augmenter
	MaxSeqLength int
	// DocStride is the token overlap between evaluation windows of a long
	// context.
	DocStride      int
	PadToMaxLength bool
}

// contextSeq returns the sequence id of the context segment, which depends
// on the tokenizer's padding side.
func (p *Pipeline) contextSeq() int {
	if p.Tokenizer.PadOnRight() {
		return api.SequenceB
	}
	return api.SequenceA
}

// encodePair orders (question, context) by padding side, the way the
// subword tokenizer expects its truncated segment.
func (p *Pipeline) encodePair(question, context string, opts api.EncodeOptions) ([]api.Encoding, error) {
	if p.Tokenizer.PadOnRight() {
		return p.Tokenizer.EncodePair(question, context, opts)
	}
	return p.Tokenizer.EncodePair(context, question, opts)
}

// PrepareTrainFeatures augments every example, relocates its answer in the
// mutated context and emits one labeled feature per encoding window.
// Examples whose answer is destroyed by substitution come out labeled as
// unanswerable (anchor fallback), which is accepted supervision noise.
func (p *Pipeline) PrepareTrainFeatures(examples []squad.Example, rng *rand.Rand) ([]Feature, error) {
	anchorID, err := p.Tokenizer.SpecialTokenID(api.TokClassification)
	if err != nil {
		return nil, errors.Wrap(err, "tokenizer has no no-answer anchor token")
	}

	out := make([]Feature, 0, len(examples))
	lost := 0
	for _, ex := range examples {
		question, context, ans := p.augmentExample(ex, rng)
		answerLost := ans == nil && !ex.Unanswerable()
		if answerLost {
			lost++
		}

		encs, err := p.encodePair(question, context, api.EncodeOptions{
			MaxLength:      p.MaxSeqLength,
			PadToMaxLength: p.PadToMaxLength,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode example %q", ex.ID)
		}
		for _, enc := range encs {
			res := ResolveSpan(enc, anchorID, p.contextSeq(), ans)
			if answerLost {
				// The resolver only sees the missing span; record the
				// distinct cause for diagnosability.
				res.Reason = ReasonAnswerLost
			}
			out = append(out, Feature{
				ExampleID:     ex.ID,
				InputIDs:      enc.InputIDs,
				AttentionMask: enc.AttentionMask,
				SequenceIDs:   enc.SequenceIDs,
				StartPosition: res.Start,
				EndPosition:   res.End,
				Reason:        res.Reason,
			})
		}
	}
	if lost > 0 {
		klog.Warningf("substitution destroyed the answer of %d/%d examples, labeled unanswerable", lost, len(examples))
	}
	return out, nil
}

// augmentExample applies question- and context-side substitution and
// relocates the answer. The protected range covers the answer's current
// character span so context-side substitution never touches it.
func (p *Pipeline) augmentExample(ex squad.Example, rng *rand.Rand) (question, context string, ans *augment.AnswerSpan) {
	// Leading question whitespace would eat into the context's token
	// budget after truncation.
	question = strings.TrimLeft(ex.Question, " \t\r\n")
	question = p.Augmenter.Apply(augment.Tokenize(question), nil, rng)

	var protected *augment.CharRange
	var answerText string
	if !ex.Unanswerable() {
		answerText = augment.NormalizeAnswer(ex.Answers[0].Text)
		start := ex.Answers[0].AnswerStart
		protected = &augment.CharRange{Start: start, End: start + len(answerText)}
	}
	context = p.Augmenter.Apply(augment.Tokenize(ex.Context), protected, rng)

	if answerText != "" {
		if span, ok := augment.Relocate(context, answerText); ok {
			ans = &span
		}
	}
	return question, context, ans
}

// PrepareEvalFeatures encodes examples without augmentation or labels,
// splitting long contexts into overlapping windows with DocStride, and
// null-marks every offset that does not belong to a context token.
func (p *Pipeline) PrepareEvalFeatures(examples []squad.Example) ([]Feature, error) {
	contextSeq := p.contextSeq()
	out := make([]Feature, 0, len(examples))
	for _, ex := range examples {
		question := strings.TrimLeft(ex.Question, " \t\r\n")
		encs, err := p.encodePair(question, ex.Context, api.EncodeOptions{
			MaxLength:         p.MaxSeqLength,
			Stride:            p.DocStride,
			ReturnOverflowing: true,
			PadToMaxLength:    p.PadToMaxLength,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode example %q", ex.ID)
		}
		for _, enc := range encs {
			offsets := make([]*api.Span, len(enc.Offsets))
			for k := range enc.Offsets {
				if enc.SequenceIDs[k] == contextSeq {
					span := enc.Offsets[k]
					offsets[k] = &span
				}
			}
			out = append(out, Feature{
				ExampleID:     ex.ID,
				InputIDs:      enc.InputIDs,
				AttentionMask: enc.AttentionMask,
				SequenceIDs:   enc.SequenceIDs,
				Offsets:       offsets,
			})
		}
	}
	return out, nil
}
