package features

import (
	"encoding/json"

	"github.com/xlingqa/spanalign/tokenizers/api"
)

// Feature is one subword-tokenized unit derived from an example. A long
// context produces several features per example on the evaluation path;
// ExampleID points back at the originating example.
//
// Training features carry StartPosition/EndPosition token labels.
// Evaluation features instead carry Offsets, where only context-token
// positions hold a span and every other position is nil: that null-marking
// is what lets answer decoding tell context-derived score positions from
// noise positions.
type Feature struct {
	ExampleID     string      `json:"example_id"`
	InputIDs      []int       `json:"input_ids"`
	AttentionMask []int       `json:"attention_mask"`
	SequenceIDs   []int       `json:"sequence_ids"`
	Offsets       []*api.Span `json:"offset_mapping,omitempty"`

	StartPosition int    `json:"start_position"`
	EndPosition   int    `json:"end_position"`
	Reason        Reason `json:"-"`
}

// MarshalJSON writes training labels only for training features.
// Evaluation features (recognized by their offset map) carry no labels,
// and an anchor-fallback label of (0, 0) on a training feature is real
// supervision that must not be dropped, so the split cannot be expressed
// with omitempty alone.
func (f Feature) MarshalJSON() ([]byte, error) {
	type wire struct {
		ExampleID     string      `json:"example_id"`
		InputIDs      []int       `json:"input_ids"`
		AttentionMask []int       `json:"attention_mask"`
		SequenceIDs   []int       `json:"sequence_ids"`
		Offsets       []*api.Span `json:"offset_mapping,omitempty"`
		StartPosition *int        `json:"start_position,omitempty"`
		EndPosition   *int        `json:"end_position,omitempty"`
	}
	w := wire{
		ExampleID:     f.ExampleID,
		InputIDs:      f.InputIDs,
		AttentionMask: f.AttentionMask,
		SequenceIDs:   f.SequenceIDs,
		Offsets:       f.Offsets,
	}
	if f.Offsets == nil {
		w.StartPosition = &f.StartPosition
		w.EndPosition = &f.EndPosition
	}
	return json.Marshal(w)
}
