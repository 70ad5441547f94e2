// Package api defines the subword tokenizer contract consumed by the
// alignment pipeline. It is a separate package so that concrete tokenizer
// implementations and the pipeline can be imported independently.
package api

// Span represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
type Span struct {
	Start int // start byte position (inclusive)
	End   int // end byte position (exclusive)
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Sequence ids used in Encoding.SequenceIDs. Special tokens and padding
// positions carry SequenceNone.
const (
	SequenceNone = -1
	SequenceA    = 0
	SequenceB    = 1
)

// Encoding is one subword-tokenized unit produced from a (textA, textB)
// pair. A long second segment may produce several Encodings when stride
// and overflow are requested; SampleIndex points back at the input pair
// each Encoding was derived from.
type Encoding struct {
	InputIDs      []int
	AttentionMask []int
	// SequenceIDs marks, per position, whether the token came from the
	// first text (SequenceA), the second text (SequenceB), or is a
	// special/padding token (SequenceNone).
	SequenceIDs []int
	// Offsets holds the byte span of each token in its source text.
	// Special and padding tokens carry the zero span.
	Offsets []Span
	// SampleIndex is the index of the input pair this encoding overflowed
	// from (the overflow-to-sample mapping).
	SampleIndex int
}

// EncodeOptions control pair encoding.
type EncodeOptions struct {
	// MaxLength is the total sequence length including special tokens.
	MaxLength int
	// Stride is the overlap, in subword tokens, between consecutive
	// overflowing windows of the truncated segment.
	Stride int
	// ReturnOverflowing requests one Encoding per window instead of
	// truncating to a single window.
	ReturnOverflowing bool
	// PadToMaxLength pads every encoding to MaxLength.
	PadToMaxLength bool
}

// Tokenizer converts text to integer token ids and back, and maps special
// tokens with a common semantic (like padding) to implementation ids.
type Tokenizer interface {
	Encode(text string) []int
	Decode([]int) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// PairTokenizer extends Tokenizer with the pair-encoding mode the
// question-answering pipeline depends on: joint encoding of two texts with
// per-token byte offsets, sequence ids, truncation of the second segment
// with stride/overflow, and optional padding.
type PairTokenizer interface {
	Tokenizer

	// EncodePair encodes (textA, textB) into one or more Encodings.
	// Only the second segment is ever truncated.
	EncodePair(textA, textB string, opts EncodeOptions) ([]Encoding, error)

	// PadOnRight reports the tokenizer's padding side. When true the
	// convention is (question, context) and the context is SequenceB;
	// when false the pair is reversed and the context is SequenceA.
	PadOnRight() bool
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSpecialTokensCount
)

var specialTokenNames = [TokSpecialTokensCount]string{
	"beginning_of_sentence", "end_of_sentence", "unknown", "pad", "mask", "classification",
}

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	if t < 0 || t >= TokSpecialTokensCount {
		return "invalid_special_token"
	}
	return specialTokenNames[t]
}
