package train

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlingqa/spanalign/features"
	"github.com/xlingqa/spanalign/schedule"
)

func TestLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := CreateLog(path)
	require.NoError(t, err)

	require.NoError(t, l.Step(10, 0.5))
	require.NoError(t, l.Eval(10, 71.25))
	require.NoError(t, l.EpochEnd(0))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, "start\n"))
	assert.Contains(t, got, "\n step :10 loss: 0.5")
	assert.Contains(t, got, "\n eval step :10 f1: 71.25")
	assert.Contains(t, got, "epoch 0 end \n")
}

func TestLogLockedByAnotherRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := CreateLog(path)
	require.NoError(t, err)
	defer l.Close()

	_, err = CreateLog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestCheckpointPath(t *testing.T) {
	cfg := CheckpointConfig{
		Dir:          "ckpt/mbert",
		EvalLang:     "ar",
		LRFineTune:   3e-05,
		LRPretrained: 5e-06,
		BatchSize:    8,
		Ratio:        5,
	}
	got := cfg.Path(71.5)
	assert.Equal(t, filepath.Join("ckpt/mbert_5", "eval-langar_lrft3e-05_lrpt5e-06_batchsize8_f1_71.5.pt"), got)

	cfg.Ratio = 0
	assert.Equal(t, filepath.Join("ckpt/mbert", "eval-langar_lrft3e-05_lrpt5e-06_batchsize8_f1_71.5.pt"), cfg.Path(71.5))
}

func TestEarlyStopper(t *testing.T) {
	s := NewEarlyStopper(3)

	improved, stop := s.Observe(50)
	assert.True(t, improved)
	assert.False(t, stop)

	// Three non-improving evaluations are tolerated, the fourth stops.
	for i := 0; i < 3; i++ {
		improved, stop = s.Observe(50)
		assert.False(t, improved)
		assert.False(t, stop)
	}
	improved, stop = s.Observe(49)
	assert.False(t, improved)
	assert.True(t, stop)
	assert.Equal(t, 50.0, s.BestF1())
}

func TestEarlyStopperResetsOnImprovement(t *testing.T) {
	s := NewEarlyStopper(1)
	s.Observe(10)
	_, stop := s.Observe(5)
	assert.False(t, stop)
	improved, _ := s.Observe(20)
	assert.True(t, improved)
	_, stop = s.Observe(5)
	assert.False(t, stop, "patience must reset after an improvement")
}

// fakeModel counts batches and records checkpoint saves.
type fakeModel struct {
	losses []float64
	calls  int
	saved  []string
}

func (m *fakeModel) TrainBatch(batch []features.Feature) (float64, error) {
	loss := m.losses[m.calls%len(m.losses)]
	m.calls++
	return loss, nil
}

func (m *fakeModel) Save(path string) error {
	m.saved = append(m.saved, path)
	return nil
}

// groupOnly satisfies schedule.Optimizer with no-op updates.
type groupOnly struct{ rates []float64 }

func (o *groupOnly) NumGroups() int { return len(o.rates) }

func (o *groupOnly) SetGroupRate(g int, rate float64) { o.rates[g] = rate }

func (o *groupOnly) Step() {}

func (o *groupOnly) ZeroGrad() {}

func newTestLoop(t *testing.T, model *fakeModel, cfg LoopConfig, eval func() (float64, error)) *Loop {
	t.Helper()
	sched, err := schedule.NewReverseSqrt(&groupOnly{rates: make([]float64, 1)}, []float64{8.0}, 4)
	require.NoError(t, err)
	log, err := CreateLog(filepath.Join(t.TempDir(), "run.log"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return &Loop{
		Model:      model,
		Scheduler:  sched,
		Log:        log,
		Evaluate:   eval,
		Checkpoint: CheckpointConfig{Dir: filepath.Join(t.TempDir(), "ckpt"), EvalLang: "en", BatchSize: cfg.BatchSize},
		Stopper:    NewEarlyStopper(DefaultPatience),
		Config:     cfg,
	}
}

func trainFeatures(n int) []features.Feature {
	feats := make([]features.Feature, n)
	for i := range feats {
		feats[i] = features.Feature{ExampleID: "e", InputIDs: []int{2, 3}}
	}
	return feats
}

func TestLoopRunsAllEpochs(t *testing.T) {
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         2,
		BatchSize:      2,
		GradAccumSteps: 1,
		LossInterval:   1,
		EvalInterval:   -1,
	}, nil)

	require.NoError(t, loop.Run(trainFeatures(6)))
	assert.Equal(t, 6, model.calls, "3 batches per epoch over 2 epochs")
	assert.Equal(t, 6, loop.Scheduler.Steps())
	assert.Empty(t, model.saved, "no eval means no checkpoints")
}

func TestLoopGradientAccumulation(t *testing.T) {
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         1,
		BatchSize:      1,
		GradAccumSteps: 2,
		LossInterval:   10,
		EvalInterval:   -1,
	}, nil)

	require.NoError(t, loop.Run(trainFeatures(5)))
	assert.Equal(t, 5, model.calls)
	// Optimizer steps at batch indices 0, 2, 4 (and 4 is also the last).
	assert.Equal(t, 3, loop.Scheduler.Steps())
}

func TestLoopCheckpointsOnImprovement(t *testing.T) {
	f1s := []float64{50, 40, 60}
	i := 0
	eval := func() (float64, error) {
		f := f1s[i%len(f1s)]
		i++
		return f, nil
	}
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         1,
		BatchSize:      1,
		GradAccumSteps: 1,
		LossInterval:   10,
		EvalInterval:   1,
	}, eval)

	require.NoError(t, loop.Run(trainFeatures(3)))
	require.Len(t, model.saved, 2, "only improvements checkpoint")
	assert.Contains(t, model.saved[0], "f1_50")
	assert.Contains(t, model.saved[1], "f1_60")
}

func TestLoopEarlyStops(t *testing.T) {
	eval := func() (float64, error) { return 10, nil }
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         100,
		BatchSize:      1,
		GradAccumSteps: 1,
		LossInterval:   1000,
		EvalInterval:   1,
	}, eval)

	require.NoError(t, loop.Run(trainFeatures(3)))
	// First eval improves over 0, then patience 3 tolerates three flat
	// evals and the fifth stops the run.
	assert.Equal(t, 5, model.calls)
	assert.Len(t, model.saved, 1)
}

func TestLoopMaxSteps(t *testing.T) {
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         10,
		BatchSize:      1,
		GradAccumSteps: 1,
		LossInterval:   100,
		EvalInterval:   -1,
		MaxSteps:       4,
	}, nil)

	require.NoError(t, loop.Run(trainFeatures(10)))
	assert.Equal(t, 4, model.calls)
}

func TestLoopConfigValidation(t *testing.T) {
	model := &fakeModel{losses: []float64{1.0}}
	loop := newTestLoop(t, model, LoopConfig{
		Epochs:         0,
		BatchSize:      1,
		GradAccumSteps: 1,
		LossInterval:   1,
		EvalInterval:   -1,
	}, nil)
	require.Error(t, loop.Run(trainFeatures(1)))

	loop.Config = LoopConfig{Epochs: 1, BatchSize: 1, GradAccumSteps: 1, LossInterval: 1, EvalInterval: 5}
	loop.Evaluate = nil
	require.Error(t, loop.Run(trainFeatures(1)))
}
