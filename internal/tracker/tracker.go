package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/entropy"
	"tierraffle/internal/logger"
	"tierraffle/internal/metrics"
	"tierraffle/internal/raffle"
	"tierraffle/internal/storage"
)

type Options struct {
	// Keeper is the identity reported as the caller of settlements.
	Keeper   ton.AccountID
	Interval time.Duration
	TierIDs  []string
}

// Tracker keeps the entropy history fed from the chain head and settles
// every tier that closed since the previous pass.
type Tracker struct {
	engine   *raffle.Engine
	history  *entropy.History
	feeder   entropy.Feeder
	metrics  *metrics.RaffleMetrics
	keeper   ton.AccountID
	interval time.Duration
	tierIDs  []string
}

// Report describes one pass of the tracker.
type Report struct {
	EntropyAppended bool
	EntropySlot     uint64
	Settled         []*raffle.Receipt
	Uninitialized   []string
	Failed          []string
}

func NewTracker(engine *raffle.Engine, history *entropy.History, feeder entropy.Feeder, options Options) (*Tracker, error) {
	if engine == nil || history == nil || feeder == nil {
		return nil, errors.New("tracker: engine, history and feeder are required")
	}

	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tierIDs := options.TierIDs
	if len(tierIDs) == 0 {
		tierIDs = raffle.TierIDs()
	}

	logger.Debug("tracker initialization: done",
		zap.Duration("interval", interval),
		zap.Strings("tiers", tierIDs),
		zap.String("keeper", options.Keeper.ToRaw()),
	)
	return &Tracker{
		engine:   engine,
		history:  history,
		feeder:   feeder,
		keeper:   options.Keeper,
		interval: interval,
		tierIDs:  tierIDs,
	}, nil
}

func (t *Tracker) SetMetrics(m *metrics.RaffleMetrics) { t.metrics = m }

// Run performs a pass every interval until ctx is cancelled. A failed pass is
// logged and retried on the next tick.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if _, err := t.Step(ctx); err != nil && ctx.Err() == nil {
			logger.Error("tracker: pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			t.Finalize()
			return nil
		case <-ticker.C:
		}
	}
}

// Step refreshes entropy once and settles every closed tier.
func (t *Tracker) Step(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := t.synchronizeEntropy(ctx, report); err != nil {
		// Settlement does not need fresh entropy, keep going.
		logger.Warn("tracker: entropy refresh failed", zap.Error(err))
	}

	data, err := t.GetRaffleData(ctx)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, tier := range data {
		if tier.Err != nil {
			logger.Error("tracker: tier skipped", zap.String("tier", tier.TierID), zap.Error(tier.Err))
			report.Failed = append(report.Failed, tier.TierID)
			errs = append(errs, fmt.Errorf("tier %s: %w", tier.TierID, tier.Err))
			continue
		}
		if tier.NeedsInitialization {
			report.Uninitialized = append(report.Uninitialized, tier.TierID)
			continue
		}
		t.metrics.ObserveRound(tier.TierID, tier.Round, tier.ParticipantsCount)
		if tier.Status != storage.RaffleStatusClosed {
			continue
		}

		receipt, err := t.settleTier(ctx, tier)
		if err != nil {
			logger.Error("tracker: settlement failed", zap.String("tier", tier.TierID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if receipt != nil {
			report.Settled = append(report.Settled, receipt)
		}
	}

	return report, errors.Join(errs...)
}

func (t *Tracker) Finalize() {
	logger.Info("tracker: stopped")
}

// RetryOnConflict reruns fn while it fails with storage.ErrConflict, at most
// attempts times. Every rerun re-reads the account.
func RetryOnConflict[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = fn()
		if !errors.Is(err, storage.ErrConflict) {
			return result, err
		}

		logger.Debug("conflicting commit, retrying...", zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(conflictBackoff):
		}
	}
	return result, err
}

func (t *Tracker) settleTier(ctx context.Context, tier *RaffleAccountData) (*raffle.Receipt, error) {
	receipt, err := RetryOnConflict(ctx, DefaultConflictRetries, func() (*raffle.Receipt, error) {
		return t.engine.DistributePrize(ctx, tier.TierID, t.keeper, blockchain.None)
	})
	if errors.Is(err, raffle.ErrRaffleNotClosed) {
		logger.Debug("tracker: round already settled", zap.String("tier", tier.TierID), zap.Uint64("round", tier.Round))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
