package train

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/xlingqa/spanalign/features"
	"github.com/xlingqa/spanalign/schedule"
)

// Model is the forward/backward boundary the loop drives. TrainBatch runs
// one forward and backward pass and returns the batch loss; gradients
// accumulate across calls until the scheduler's optimizer step consumes
// them. Save writes a checkpoint.
type Model interface {
	TrainBatch(batch []features.Feature) (float64, error)
	Save(path string) error
}

// LoopConfig controls the epoch/step driver. EvalInterval -1 disables
// evaluation (and with it checkpointing and early stopping). MaxSteps <= 0
// means no step cap beyond the epoch count.
type LoopConfig struct {
	Epochs         int
	BatchSize      int
	GradAccumSteps int
	LossInterval   int
	EvalInterval   int
	MaxSteps       int
}

func (c LoopConfig) validate() error {
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be > 0, got %d", c.BatchSize)
	}
	if c.GradAccumSteps <= 0 {
		return errors.Errorf("gradient accumulation steps must be > 0, got %d", c.GradAccumSteps)
	}
	if c.LossInterval <= 0 {
		return errors.Errorf("loss interval must be > 0, got %d", c.LossInterval)
	}
	if c.EvalInterval == 0 || c.EvalInterval < -1 {
		return errors.Errorf("eval interval must be > 0 or -1 to disable, got %d", c.EvalInterval)
	}
	return nil
}

// Loop runs fine-tuning over pre-built training features. Evaluate is
// called at EvalInterval optimizer steps and must return the current F1;
// every improvement saves a checkpoint named by Checkpoint.
type Loop struct {
	Model      Model
	Scheduler  *schedule.ReverseSqrt
	Log        *Log
	Evaluate   func() (float64, error)
	Checkpoint CheckpointConfig
	Stopper    *EarlyStopper
	Config     LoopConfig
}

// Run drives the epoch/step loop until the epoch count, the step cap or
// the early-stopping patience ends it. Patience exhaustion is a normal
// return, not an error.
func (l *Loop) Run(feats []features.Feature) error {
	if err := l.Config.validate(); err != nil {
		return err
	}
	if l.Config.EvalInterval != -1 && l.Evaluate == nil {
		return errors.New("eval interval set but no Evaluate function given")
	}
	if l.Stopper == nil {
		l.Stopper = NewEarlyStopper(DefaultPatience)
	}

	batches := batchFeatures(feats, l.Config.BatchSize)
	klog.Infof("training: %d features, %d batches per epoch, %d epochs",
		len(feats), len(batches), l.Config.Epochs)

	completed := 0
	exit := false
	for epoch := 0; epoch < l.Config.Epochs && !exit; epoch++ {
		epochLoss := 0.0
		epochSteps := 0
		for step, batch := range batches {
			loss, err := l.Model.TrainBatch(batch)
			if err != nil {
				return errors.Wrapf(err, "training step failed at epoch %d step %d", epoch, step)
			}
			epochLoss += loss / float64(l.Config.GradAccumSteps)
			epochSteps++

			if step%l.Config.GradAccumSteps == 0 || step == len(batches)-1 {
				l.Scheduler.StepAndUpdate()
				l.Scheduler.ZeroGrad()
				completed++
			}

			if completed%l.Config.LossInterval == 0 {
				if err := l.Log.Step(completed, epochLoss/float64(epochSteps)); err != nil {
					return err
				}
			}
			if l.Config.EvalInterval != -1 && completed%l.Config.EvalInterval == 0 {
				stop, err := l.runEval(completed)
				if err != nil {
					return err
				}
				exit = exit || stop
			}
			if l.Config.MaxSteps > 0 && completed >= l.Config.MaxSteps {
				exit = true
			}
			if exit {
				break
			}
		}
		if err := l.Log.EpochEnd(epoch); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) runEval(completed int) (stop bool, err error) {
	f1, err := l.Evaluate()
	if err != nil {
		return false, errors.Wrap(err, "evaluation failed")
	}
	if err := l.Log.Eval(completed, f1); err != nil {
		return false, err
	}
	improved, stop := l.Stopper.Observe(f1)
	if improved {
		path := l.Checkpoint.Path(f1)
		if err := l.Model.Save(path); err != nil {
			return false, errors.Wrapf(err, "failed to save checkpoint %q", path)
		}
		klog.Infof("saved checkpoint %q", path)
	}
	if stop {
		klog.Infof("early stopping after %d steps, best F1 %v", completed, l.Stopper.BestF1())
	}
	return stop, nil
}

func batchFeatures(feats []features.Feature, size int) [][]features.Feature {
	var batches [][]features.Feature
	for start := 0; start < len(feats); start += size {
		end := start + size
		if end > len(feats) {
			end = len(feats)
		}
		batches = append(batches, feats[start:end])
	}
	return batches
}
