// Package features converts (question, context, answer) examples into
// model-ready subword features: token-level start/end labels for training
// and offset-preserving overlapping windows for evaluation.
package features

import (
	"github.com/xlingqa/spanalign/augment"
	"github.com/xlingqa/spanalign/tokenizers/api"
)

// Reason says how a feature's label positions were chosen. Three distinct
// causes converge on the anchor fallback; keeping them apart preserves
// diagnosability.
type Reason int

const (
	// ReasonResolved: the positions are a tight token span over the answer.
	ReasonResolved Reason = iota
	// ReasonNoAnswer: the example was unanswerable before encoding.
	ReasonNoAnswer
	// ReasonTruncated: the answer fell outside this feature's context window.
	ReasonTruncated
	// ReasonAnswerLost: lexical substitution destroyed the answer's literal
	// occurrence and relocation failed.
	ReasonAnswerLost
)

var reasonNames = map[Reason]string{
	ReasonResolved:   "resolved",
	ReasonNoAnswer:   "no_answer",
	ReasonTruncated:  "truncated",
	ReasonAnswerLost: "answer_lost",
}

// String implements fmt.Stringer.
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "invalid_reason"
}

// Resolution is the outcome of mapping an answer's character span into
// subword token indices. Start and End always lie within
// [0, len(input_ids)); fallback outcomes carry the anchor index in both.
type Resolution struct {
	Start  int
	End    int
	Reason Reason
}

// Fallback reports whether the resolution is an anchor fallback rather
// than a tight span.
func (r Resolution) Fallback() bool { return r.Reason != ReasonResolved }

// ResolveSpan maps the answer's character span through the encoding's
// offset map into exact start/end token indices.
//
// anchorID is the id of the designated no-answer token ([CLS] or
// equivalent); contextSeq selects which sequence id delimits the context
// region. A nil answer, or an answer outside the window retained after
// truncation, resolves to the anchor position on both ends.
func ResolveSpan(enc api.Encoding, anchorID, contextSeq int, ans *augment.AnswerSpan) Resolution {
	anchor := 0
	for i, id := range enc.InputIDs {
		if id == anchorID {
			anchor = i
			break
		}
	}
	if ans == nil {
		return Resolution{Start: anchor, End: anchor, Reason: ReasonNoAnswer}
	}

	// Delimit the contiguous context token range from both ends.
	lo := 0
	for lo < len(enc.SequenceIDs) && enc.SequenceIDs[lo] != contextSeq {
		lo++
	}
	hi := len(enc.SequenceIDs) - 1
	for hi >= 0 && enc.SequenceIDs[hi] != contextSeq {
		hi--
	}
	if lo >= len(enc.SequenceIDs) || hi < lo {
		// The window kept no context tokens at all.
		return Resolution{Start: anchor, End: anchor, Reason: ReasonTruncated}
	}

	// The answer must be fully inside the covered character range,
	// otherwise this feature's window truncated it away.
	if enc.Offsets[lo].Start > ans.Start || enc.Offsets[hi].End < ans.End {
		return Resolution{Start: anchor, End: anchor, Reason: ReasonTruncated}
	}

	// Two-sided tightening: advance past every token starting at or
	// before the answer start, then step back off the overshoot; mirror
	// from the other end. Both scans stay inside the context range, which
	// also covers the edge where the answer exactly fills the window.
	start := lo
	for start <= hi && enc.Offsets[start].Start <= ans.Start {
		start++
	}
	start--
	end := hi
	for end >= lo && enc.Offsets[end].End >= ans.End {
		end--
	}
	end++

	return Resolution{Start: start, End: end, Reason: ReasonResolved}
}
