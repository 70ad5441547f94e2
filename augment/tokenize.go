// Package augment implements the lexical substitution stage of the
// alignment pipeline: offset-tracking word tokenization, a table-driven
// randomized substitution of tokens, and relocation of the answer span in
// the mutated text.
//
// Substitution can legitimately destroy the literal presence of the answer
// in the context (a replaced neighbor may change spacing or casing around
// the match). Relocate reports this as "not found" and the pipeline
// converts such examples to unanswerable: this is accepted training noise,
// not an error condition.
package augment

import (
	"unicode"
	"unicode/utf8"
)

// Token is a whitespace-delimited word paired with the byte offset of its
// first character in the source string. Joining the token texts with the
// original separating whitespace reconstructs the source exactly.
type Token struct {
	Text      string
	CharStart int
}

// Tokenize splits text into tokens covering every non-whitespace run.
// Consecutive whitespace counts as a single separator and no empty tokens
// are emitted; an all-whitespace string yields an empty sequence.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	var tokens []Token
	first, _ := utf8.DecodeRuneInString(text)
	inSpace := unicode.IsSpace(first)
	runStart := 0
	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		if isSpace == inSpace {
			continue
		}
		if !inSpace {
			tokens = append(tokens, Token{Text: text[runStart:i], CharStart: runStart})
		}
		runStart = i
		inSpace = isSpace
	}
	if !inSpace {
		tokens = append(tokens, Token{Text: text[runStart:], CharStart: runStart})
	}
	return tokens
}
