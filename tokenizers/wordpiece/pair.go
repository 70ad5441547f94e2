package wordpiece

import (
	"github.com/pkg/errors"
	"github.com/xlingqa/spanalign/tokenizers/api"
)

// numSpecialTokens in a pair encoding: [CLS] a [SEP] b [SEP].
const numSpecialTokens = 3

// EncodePair encodes (textA, textB) as [CLS] a [SEP] b [SEP] with
// per-token byte offsets and sequence ids. Only the second segment is ever
// truncated; with ReturnOverflowing, the second segment is windowed with
// the requested stride overlap and one Encoding is emitted per window.
func (t *Tokenizer) EncodePair(textA, textB string, opts api.EncodeOptions) ([]api.Encoding, error) {
	if opts.MaxLength <= numSpecialTokens {
		return nil, errors.Errorf("max length %d leaves no room for content tokens", opts.MaxLength)
	}
	a := t.tokenizeWithSpans(textA)
	b := t.tokenizeWithSpans(textB)

	window := opts.MaxLength - numSpecialTokens - len(a)
	if window < 1 {
		return nil, errors.Errorf("first segment occupies %d of %d tokens, second segment cannot fit",
			len(a), opts.MaxLength)
	}
	if opts.ReturnOverflowing && opts.Stride >= window {
		return nil, errors.Errorf("stride %d must be smaller than the second-segment window %d",
			opts.Stride, window)
	}

	var encodings []api.Encoding
	start := 0
	for {
		end := start + window
		if end > len(b) {
			end = len(b)
		}
		encodings = append(encodings, t.assemble(a, b[start:end], opts))
		if !opts.ReturnOverflowing || end >= len(b) {
			break
		}
		start = end - opts.Stride
	}
	return encodings, nil
}

func (t *Tokenizer) assemble(a, b []subword, opts api.EncodeOptions) api.Encoding {
	n := len(a) + len(b) + numSpecialTokens
	size := n
	if opts.PadToMaxLength {
		size = opts.MaxLength
	}
	enc := api.Encoding{
		InputIDs:      make([]int, 0, size),
		AttentionMask: make([]int, 0, size),
		SequenceIDs:   make([]int, 0, size),
		Offsets:       make([]api.Span, 0, size),
	}

	push := func(id, seq int, span api.Span) {
		enc.InputIDs = append(enc.InputIDs, id)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SequenceIDs = append(enc.SequenceIDs, seq)
		enc.Offsets = append(enc.Offsets, span)
	}

	push(t.clsID, api.SequenceNone, api.Span{})
	for _, s := range a {
		push(s.id, api.SequenceA, s.span)
	}
	push(t.sepID, api.SequenceNone, api.Span{})
	for _, s := range b {
		push(s.id, api.SequenceB, s.span)
	}
	push(t.sepID, api.SequenceNone, api.Span{})

	if opts.PadToMaxLength {
		for len(enc.InputIDs) < opts.MaxLength {
			enc.InputIDs = append(enc.InputIDs, t.padID)
			enc.AttentionMask = append(enc.AttentionMask, 0)
			enc.SequenceIDs = append(enc.SequenceIDs, api.SequenceNone)
			enc.Offsets = append(enc.Offsets, api.Span{})
		}
	}
	return enc
}
