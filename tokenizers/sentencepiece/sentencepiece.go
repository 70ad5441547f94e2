// Package sentencepiece implements the pipeline's pair-tokenizer contract
// on top of Google's SentencePiece tokenizer. The beginning-of-sentence id
// doubles as the no-answer anchor the way [CLS] does for WordPiece models.
package sentencepiece

import (
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/pkg/errors"
	"github.com/xlingqa/spanalign/tokenizers/api"
)

// Tokenizer implements api.PairTokenizer backed by a SentencePiece model.
type Tokenizer struct {
	proc *esentencepiece.Processor
	info *esentencepiece.ModelInfo
}

// Compile time asserts.
var (
	_ api.Tokenizer     = &Tokenizer{}
	_ api.PairTokenizer = &Tokenizer{}
)

// NewFromFile creates a tokenizer from a SentencePiece model proto file.
func NewFromFile(path string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", path)
	}
	return &Tokenizer{proc: proc, info: proc.ModelInfo()}, nil
}

// Encode returns the text encoded into a sequence of ids.
func (t *Tokenizer) Encode(text string) []int {
	tokens := t.proc.Encode(text)
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = tok.ID
	}
	return ids
}

// Decode returns the text from a sequence of ids.
func (t *Tokenizer) Decode(ids []int) string {
	return t.proc.Decode(ids)
}

// SpecialTokenID returns the id for the given special token, or an error
// if the model does not define it.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokUnknown:
		return t.info.UnknownID, nil
	case api.TokPad:
		return t.info.PadID, nil
	case api.TokBeginningOfSentence, api.TokClassification:
		return t.info.BeginningOfSentenceID, nil
	case api.TokEndOfSentence:
		return t.info.EndOfSentenceID, nil
	default:
		return 0, errors.Errorf("unknown special token: %s (%d)", token, int(token))
	}
}

// PadOnRight reports the padding side.
func (t *Tokenizer) PadOnRight() bool { return true }

// encodeWithSpans encodes text and recovers each token's byte span in the
// original text by matching pieces back, skipping the metaspace marker
// SentencePiece substitutes for leading whitespace.
func (t *Tokenizer) encodeWithSpans(text string) ([]int, []api.Span) {
	tokens := t.proc.Encode(text)
	ids := make([]int, len(tokens))
	spans := make([]api.Span, len(tokens))

	pos := 0
	for i, tok := range tokens {
		ids[i] = tok.ID
		piece, hadMetaspace := strings.CutPrefix(tok.Text, "▁")
		if hadMetaspace {
			for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r') {
				pos++
			}
		}
		if piece == "" {
			// The token is just the space marker itself.
			spans[i] = api.Span{Start: pos, End: pos}
			continue
		}
		if found := strings.Index(text[pos:], piece); found >= 0 {
			start := pos + found
			pos = start + len(piece)
			spans[i] = api.Span{Start: start, End: pos}
			continue
		}
		// Normalization changed the surface form; attribute the current
		// position and advance by the piece length.
		start := pos
		pos += len(piece)
		if pos > len(text) {
			pos = len(text)
		}
		spans[i] = api.Span{Start: start, End: pos}
	}
	return ids, spans
}

// EncodePair encodes (textA, textB) as [BOS] a [EOS] b [EOS], mirroring
// the WordPiece pair layout with the model's own sentence delimiters.
// Only the second segment is truncated.
func (t *Tokenizer) EncodePair(textA, textB string, opts api.EncodeOptions) ([]api.Encoding, error) {
	const numSpecial = 3
	if opts.MaxLength <= numSpecial {
		return nil, errors.Errorf("max length %d leaves no room for content tokens", opts.MaxLength)
	}
	aIDs, aSpans := t.encodeWithSpans(textA)
	bIDs, bSpans := t.encodeWithSpans(textB)

	window := opts.MaxLength - numSpecial - len(aIDs)
	if window < 1 {
		return nil, errors.Errorf("first segment occupies %d of %d tokens, second segment cannot fit",
			len(aIDs), opts.MaxLength)
	}
	if opts.ReturnOverflowing && opts.Stride >= window {
		return nil, errors.Errorf("stride %d must be smaller than the second-segment window %d",
			opts.Stride, window)
	}

	var encodings []api.Encoding
	start := 0
	for {
		end := start + window
		if end > len(bIDs) {
			end = len(bIDs)
		}
		encodings = append(encodings, t.assemble(aIDs, aSpans, bIDs[start:end], bSpans[start:end], opts))
		if !opts.ReturnOverflowing || end >= len(bIDs) {
			break
		}
		start = end - opts.Stride
	}
	return encodings, nil
}

func (t *Tokenizer) assemble(aIDs []int, aSpans []api.Span, bIDs []int, bSpans []api.Span, opts api.EncodeOptions) api.Encoding {
	var enc api.Encoding
	push := func(id, seq int, span api.Span) {
		enc.InputIDs = append(enc.InputIDs, id)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SequenceIDs = append(enc.SequenceIDs, seq)
		enc.Offsets = append(enc.Offsets, span)
	}

	push(t.info.BeginningOfSentenceID, api.SequenceNone, api.Span{})
	for i, id := range aIDs {
		push(id, api.SequenceA, aSpans[i])
	}
	push(t.info.EndOfSentenceID, api.SequenceNone, api.Span{})
	for i, id := range bIDs {
		push(id, api.SequenceB, bSpans[i])
	}
	push(t.info.EndOfSentenceID, api.SequenceNone, api.Span{})

	if opts.PadToMaxLength {
		for len(enc.InputIDs) < opts.MaxLength {
			enc.InputIDs = append(enc.InputIDs, t.info.PadID)
			enc.AttentionMask = append(enc.AttentionMask, 0)
			enc.SequenceIDs = append(enc.SequenceIDs, api.SequenceNone)
			enc.Offsets = append(enc.Offsets, api.Span{})
		}
	}
	return enc
}
