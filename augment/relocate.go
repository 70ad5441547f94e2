package augment

import "strings"

// AnswerSpan is a resolved answer location: context[Start:End] == Text.
type AnswerSpan struct {
	Start int
	End   int
	Text  string
}

// NormalizeAnswer collapses internal whitespace in the answer text to
// single spaces, matching the re-join normalization of Augmenter.Apply.
func NormalizeAnswer(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Relocate finds the first literal occurrence of the original answer text
// in the mutated context. The answer text is whitespace-normalized first.
// When the answer no longer occurs literally, ok is false and the example
// becomes unanswerable; see the package comment for why this is accepted
// rather than treated as an error.
func Relocate(mutatedContext, originalAnswer string) (span AnswerSpan, ok bool) {
	text := NormalizeAnswer(originalAnswer)
	if text == "" {
		return AnswerSpan{}, false
	}
	idx := strings.Index(mutatedContext, text)
	if idx < 0 {
		return AnswerSpan{}, false
	}
	return AnswerSpan{Start: idx, End: idx + len(text), Text: text}, true
}
