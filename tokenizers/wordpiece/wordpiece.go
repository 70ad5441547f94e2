// Package wordpiece implements a WordPiece subword tokenizer (BERT-style)
// loaded from HuggingFace's tokenizer.json format, extended with the
// byte-span tracking and pair-encoding modes the alignment pipeline needs.
package wordpiece

import (
	"encoding/json"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/xlingqa/spanalign/tokenizers/api"
	"golang.org/x/text/unicode/norm"
)

// tokenizerJSON is the subset of HuggingFace's tokenizer.json this
// implementation consumes.
type tokenizerJSON struct {
	Version     string       `json:"version"`
	AddedTokens []addedToken `json:"added_tokens"`
	Normalizer  *normalizer  `json:"normalizer"`
	Model       model        `json:"model"`
}

type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type normalizer struct {
	Type      string `json:"type"`
	Lowercase bool   `json:"lowercase"`
}

type model struct {
	Type                    string         `json:"type"`
	Vocab                   map[string]int `json:"vocab"`
	UnkToken                string         `json:"unk_token"`
	ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int            `json:"max_input_chars_per_word"`
}

// Tokenizer is a WordPiece tokenizer with span tracking.
type Tokenizer struct {
	vocab     map[string]int
	idToToken map[int]string

	lowercase     bool
	prefix        string
	maxInputChars int

	unkID  int
	padID  int
	clsID  int
	sepID  int
	maskID int
}

// Compile time asserts that Tokenizer implements the pipeline contracts.
var (
	_ api.Tokenizer     = &Tokenizer{}
	_ api.PairTokenizer = &Tokenizer{}
)

// NewFromFile creates a tokenizer from a local tokenizer.json file path.
func NewFromFile(filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer file %q", filePath)
	}
	return NewFromContent(content)
}

// NewFromContent creates a tokenizer from tokenizer.json content.
func NewFromContent(content []byte) (*Tokenizer, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrap(err, "failed to parse tokenizer.json")
	}
	if tj.Model.Type != "" && tj.Model.Type != "WordPiece" {
		return nil, errors.Errorf("unsupported tokenizer model type %q, only WordPiece is supported", tj.Model.Type)
	}

	t := &Tokenizer{
		vocab:         make(map[string]int, len(tj.Model.Vocab)+len(tj.AddedTokens)),
		idToToken:     make(map[int]string, len(tj.Model.Vocab)+len(tj.AddedTokens)),
		prefix:        tj.Model.ContinuingSubwordPrefix,
		maxInputChars: tj.Model.MaxInputCharsPerWord,
		unkID:         -1,
		padID:         -1,
		clsID:         -1,
		sepID:         -1,
		maskID:        -1,
	}
	if t.prefix == "" {
		t.prefix = "##"
	}
	if t.maxInputChars == 0 {
		t.maxInputChars = 100
	}
	if tj.Normalizer != nil {
		t.lowercase = tj.Normalizer.Lowercase || tj.Normalizer.Type == "Lowercase"
	}

	for token, id := range tj.Model.Vocab {
		t.vocab[token] = id
		t.idToToken[id] = token
	}
	if tj.Model.UnkToken != "" {
		if id, ok := t.vocab[tj.Model.UnkToken]; ok {
			t.unkID = id
		}
	}
	for _, at := range tj.AddedTokens {
		t.vocab[at.Content] = at.ID
		t.idToToken[at.ID] = at.Content
		if !at.Special {
			continue
		}
		switch at.Content {
		case "[UNK]", "<unk>":
			t.unkID = at.ID
		case "[PAD]", "<pad>":
			t.padID = at.ID
		case "[CLS]", "<s>":
			t.clsID = at.ID
		case "[SEP]", "</s>":
			t.sepID = at.ID
		case "[MASK]", "<mask>":
			t.maskID = at.ID
		}
	}
	if t.clsID < 0 || t.sepID < 0 {
		return nil, errors.New("tokenizer.json defines no [CLS]/[SEP] special tokens")
	}
	if t.padID < 0 {
		return nil, errors.New("tokenizer.json defines no [PAD] special token")
	}
	return t, nil
}

// subword is a vocabulary token annotated with its byte span in the
// original (pre-normalization) text.
type subword struct {
	id   int
	span api.Span
}

// tokenizeWithSpans converts text to subwords, each carrying its byte span
// in text. Lowercasing for vocabulary lookup never shifts the recorded
// spans, which always index the original text.
func (t *Tokenizer) tokenizeWithSpans(text string) []subword {
	var out []subword
	for _, w := range preTokenize(text) {
		out = append(out, t.wordPiece(w)...)
	}
	return out
}

// word is a pre-tokenized unit: a whitespace/punctuation-delimited chunk
// with its byte span in the source text.
type word struct {
	text string
	span api.Span
}

// preTokenize splits text on whitespace and punctuation, keeping each
// punctuation rune as its own word (the BertPreTokenizer behavior).
func preTokenize(text string) []word {
	var words []word
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, word{text: text[start:end], span: api.Span{Start: start, End: end}})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case isWhitespace(r):
			flush(i)
		case isPunctuation(r):
			flush(i)
			end := i + len(string(r))
			words = append(words, word{text: text[i:end], span: api.Span{Start: i, End: end}})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return words
}

// wordPiece splits one word into subword tokens via greedy longest-match.
// A word that cannot be segmented (or exceeds maxInputChars) becomes a
// single unknown token spanning the whole word.
func (t *Tokenizer) wordPiece(w word) []subword {
	lookup := w.text
	if t.lowercase {
		lookup = strings.ToLower(norm.NFC.String(lookup))
	}
	if len([]rune(lookup)) > t.maxInputChars {
		return t.unknown(w)
	}
	// Spans of the sub-pieces index the original text, which is only
	// exact when normalization kept byte lengths; otherwise the whole
	// word's span is attributed to each piece.
	exactSpans := len(lookup) == len(w.text)

	var pieces []subword
	start := 0
	for start < len(lookup) {
		end := len(lookup)
		found := false
		for start < end {
			sub := lookup[start:end]
			if start > 0 {
				sub = t.prefix + sub
			}
			if id, ok := t.vocab[sub]; ok {
				span := w.span
				if exactSpans {
					span = api.Span{Start: w.span.Start + start, End: w.span.Start + end}
				}
				pieces = append(pieces, subword{id: id, span: span})
				found = true
				break
			}
			end--
		}
		if !found {
			return t.unknown(w)
		}
		start = end
	}
	return pieces
}

func (t *Tokenizer) unknown(w word) []subword {
	if t.unkID < 0 {
		return nil
	}
	return []subword{{id: t.unkID, span: w.span}}
}

// Encode converts text to a sequence of token ids, without special tokens.
// Text with no tokens yields nil.
func (t *Tokenizer) Encode(text string) []int {
	subs := t.tokenizeWithSpans(text)
	if len(subs) == 0 {
		return nil
	}
	ids := make([]int, len(subs))
	for i, s := range subs {
		ids[i] = s.id
	}
	return ids
}

// Decode converts token ids back to text, merging continuation pieces.
func (t *Tokenizer) Decode(ids []int) string {
	var b strings.Builder
	first := true
	for _, id := range ids {
		token, ok := t.idToToken[id]
		if !ok {
			continue
		}
		if strings.HasPrefix(token, t.prefix) {
			b.WriteString(strings.TrimPrefix(token, t.prefix))
			continue
		}
		if !first {
			b.WriteString(" ")
		}
		b.WriteString(token)
		first = false
	}
	return b.String()
}

// SpecialTokenID returns the ID for a given special token.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = t.unkID
	case api.TokPad:
		id = t.padID
	case api.TokMask:
		id = t.maskID
	case api.TokClassification, api.TokBeginningOfSentence:
		id = t.clsID
	case api.TokEndOfSentence:
		id = t.sepID
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not found", token)
	}
	return id, nil
}

// PadOnRight reports the padding side; WordPiece models pad on the right.
func (t *Tokenizer) PadOnRight() bool { return true }

// VocabSize returns the size of the vocabulary including added tokens.
func (t *Tokenizer) VocabSize() int { return len(t.vocab) }

// TokenToID converts a token string to its ID.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	id, ok := t.vocab[token]
	return id, ok
}

// IDToToken converts a token ID to its string.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	token, ok := t.idToToken[id]
	return token, ok
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isPunctuation(r rune) bool {
	// ASCII punctuation ranges first, then the unicode Punct category.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
