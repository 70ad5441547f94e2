// Package predict reassembles batched model outputs into dataset-ordered
// arrays for answer decoding.
package predict

import (
	"github.com/pkg/errors"
)

// Sentinel marks positions of the stitched array that no batch wrote:
// padding columns of short batches and rows no batch reached. Decoding
// treats sentinel positions as invalid scores.
const Sentinel = -100.0

// Stitcher concatenates variable-width score batches row-wise into one
// fixed (datasetLen, maxCols) destination. Batches arrive in dataset
// order; each Append writes the batch's rows into the next consecutive
// row range. A ragged final batch that would overflow the destination is
// truncated, keeping exactly datasetLen rows.
//
// A Stitcher is used by exactly one goroutine at a time.
type Stitcher struct {
	rows    [][]float64
	maxCols int
	next    int
}

// NewStitcher allocates the destination array filled with Sentinel.
func NewStitcher(datasetLen, maxCols int) (*Stitcher, error) {
	if datasetLen < 0 {
		return nil, errors.Errorf("dataset length must be >= 0, got %d", datasetLen)
	}
	if maxCols <= 0 {
		return nil, errors.Errorf("max columns must be > 0, got %d", maxCols)
	}
	rows := make([][]float64, datasetLen)
	backing := make([]float64, datasetLen*maxCols)
	for i := range backing {
		backing[i] = Sentinel
	}
	for i := range rows {
		rows[i] = backing[i*maxCols : (i+1)*maxCols]
	}
	return &Stitcher{rows: rows, maxCols: maxCols}, nil
}

// Append writes batch into the next rows of the destination. Rows beyond
// the destination's length are dropped. A batch row wider than maxCols is
// an error: the caller mis-reported the global maximum.
func (s *Stitcher) Append(batch [][]float64) error {
	for _, row := range batch {
		if len(row) > s.maxCols {
			return errors.Errorf("batch row has %d columns, stitcher was sized for %d", len(row), s.maxCols)
		}
		if s.next >= len(s.rows) {
			return nil
		}
		copy(s.rows[s.next], row)
		s.next++
	}
	return nil
}

// Filled reports how many rows Append has written so far.
func (s *Stitcher) Filled() int { return s.next }

// Rows returns the stitched (datasetLen, maxCols) array. The slice shares
// storage with the Stitcher; callers must not Append afterwards.
func (s *Stitcher) Rows() [][]float64 { return s.rows }
