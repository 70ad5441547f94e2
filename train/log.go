// Package train holds the fine-tuning loop collaborators: the append-only
// training log, checkpoint naming, early stopping and the epoch/step
// driver. The model's forward/backward pass itself is an injected
// boundary, not implemented here.
package train

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Log is the contractual plain-text training log: a line-oriented stream
// of step/loss, epoch-end and evaluation lines with stable field ordering.
// Downstream tooling parses it, so the formats below must not change.
//
// A file lock guards against two runs appending to the same path.
type Log struct {
	f    *os.File
	lock *flock.Flock
}

// CreateLog truncates (or creates) the log file, writes the start marker
// and takes the file lock. The parent directory is created if missing.
func CreateLog(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create log directory for %q", path)
		}
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock training log %q", path)
	}
	if !ok {
		return nil, errors.Errorf("training log %q is locked by another run", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, errors.Wrapf(err, "failed to create training log %q", path)
	}
	l := &Log{f: f, lock: lock}
	if err := l.write("start\n"); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Step appends a step/loss line.
func (l *Log) Step(step int, loss float64) error {
	return l.write(fmt.Sprintf("\n step :%d loss: %v", step, loss))
}

// EpochEnd appends an epoch-end marker.
func (l *Log) EpochEnd(epoch int) error {
	return l.write(fmt.Sprintf("epoch %d end \n", epoch))
}

// Eval appends a per-checkpoint F1 line.
func (l *Log) Eval(step int, f1 float64) error {
	return l.write(fmt.Sprintf("\n eval step :%d f1: %v", step, f1))
}

func (l *Log) write(line string) error {
	if _, err := l.f.WriteString(line); err != nil {
		return errors.Wrapf(err, "failed to append to training log %q", l.f.Name())
	}
	klog.V(1).Infof("training log: %q", line)
	return nil
}

// Close releases the file and its lock.
func (l *Log) Close() error {
	err := l.f.Close()
	if uerr := l.lock.Unlock(); err == nil {
		err = uerr
	}
	return errors.Wrap(err, "failed to close training log")
}
