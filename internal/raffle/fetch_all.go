package raffle

import (
	"context"
	"errors"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tierraffle/internal/logger"
	"tierraffle/internal/storage"
)

// TierState is one entry of a bulk read. Account is nil and
// NeedsInitialization is set for tiers that have not been initialized yet.
// Err is set when this tier could not be read or failed verification; the
// other entries of the batch are unaffected.
type TierState struct {
	Tier                Tier
	Address             ton.AccountID
	Vault               ton.AccountID
	Account             *storage.RaffleAccount
	VaultBalance        uint64
	NeedsInitialization bool
	Err                 error
}

// FetchAll reads every requested tier concurrently. Missing accounts and
// per-tier failures are reported on the entry, not as an error. Only an
// unknown tier id fails the whole call.
func (e *Engine) FetchAll(ctx context.Context, tierIDs []string) ([]TierState, error) {
	states := make([]TierState, len(tierIDs))
	for i, tierID := range tierIDs {
		tier, err := e.lookupTier(tierID)
		if err != nil {
			return nil, err
		}
		states[i] = TierState{
			Tier:    tier,
			Address: e.RaffleAccountAddress(tier.ID),
			Vault:   e.VaultAddress(tier.ID),
		}
	}

	var group errgroup.Group
	for i := range states {
		state := &states[i]

		group.Go(func() error {
			state.Err = e.fetchTier(ctx, state)
			if state.Err != nil {
				logger.Warn("fetch all: tier unavailable", zap.String("tier", state.Tier.ID), zap.Error(state.Err))
			}
			return nil
		})
	}
	_ = group.Wait()

	return states, nil
}

func (e *Engine) fetchTier(ctx context.Context, state *TierState) error {
	account, err := e.store.GetRaffleAccount(ctx, state.Tier.ID)
	if errors.Is(err, storage.ErrNotFound) {
		state.NeedsInitialization = true
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.verifyAccount(account, state.Tier); err != nil {
		return err
	}

	balance, err := e.store.Balance(ctx, state.Vault)
	if err != nil {
		return err
	}

	state.Account = account
	state.VaultBalance = balance
	return nil
}

// Settlements returns the settled rounds of a tier, oldest first.
func (e *Engine) Settlements(ctx context.Context, tierID string) ([]*storage.Settlement, error) {
	if _, err := e.lookupTier(tierID); err != nil {
		return nil, err
	}
	return e.store.Settlements(ctx, tierID)
}
