package tracker

import (
	"context"

	"go.uber.org/zap"

	"tierraffle/internal/entropy"
	"tierraffle/internal/logger"
)

// synchronizeEntropy appends the feeder head to the history when it moved.
func (t *Tracker) synchronizeEntropy(ctx context.Context, report *Report) error {
	appended, err := entropy.Refresh(ctx, t.history, t.feeder)
	if err != nil {
		return err
	}

	sample, err := t.history.MostRecent(ctx)
	if err != nil {
		return err
	}

	report.EntropyAppended = appended
	report.EntropySlot = sample.Slot
	t.metrics.ObserveEntropy(sample.Slot)
	if appended {
		logger.Debug("synchronize entropy: recorded", zap.Uint64("slot", sample.Slot))
	}
	return nil
}
