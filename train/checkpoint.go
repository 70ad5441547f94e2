package train

import (
	"fmt"
	"path/filepath"
)

// CheckpointConfig holds the run parameters that a checkpoint filename
// encodes. No other metadata is embedded: the name is the metadata.
type CheckpointConfig struct {
	Dir          string
	EvalLang     string
	LRFineTune   float64
	LRPretrained float64
	BatchSize    int
	Ratio        int
}

// runDir separates augmented runs from the ratio-0 baseline.
func (c CheckpointConfig) runDir() string {
	if c.Ratio == 0 {
		return c.Dir
	}
	return fmt.Sprintf("%s_%d", c.Dir, c.Ratio)
}

// Path names the checkpoint emitted for an F1 improvement.
func (c CheckpointConfig) Path(f1 float64) string {
	name := fmt.Sprintf("eval-lang%s_lrft%v_lrpt%v_batchsize%d_f1_%v.pt",
		c.EvalLang, c.LRFineTune, c.LRPretrained, c.BatchSize, f1)
	return filepath.Join(c.runDir(), name)
}
