package raffle

import (
	"context"
	"fmt"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/logger"
	"tierraffle/internal/storage"
)

// InitializeRaffle creates the tier account at round 1 together with its
// vault. It fails on a second call for the same tier.
func (e *Engine) InitializeRaffle(ctx context.Context, tierID string, authority ton.AccountID) (receipt *Receipt, err error) {
	defer func() { e.metrics.ObserveInstruction(string(InstructionInitializeRaffle), err) }()

	logger.Debug("initialize raffle: checking tier...", zap.String("tier", tierID))
	tier, err := e.lookupTier(tierID)
	if err != nil {
		return nil, err
	}

	if blockchain.IsNone(authority) || (e.authority != nil && *e.authority != authority) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, authority.ToRaw())
	}

	account := newRaffleAccount(e.program, tier, authority)
	vault := e.VaultAddress(tier.ID)

	err = e.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.CreateRaffleAccount(account); err != nil {
			return err
		}
		return tx.CreateVault(vault)
	})
	if err != nil {
		logger.Debug("initialize raffle: cannot create account", zap.String("tier", tierID), zap.Error(err))
		return nil, fmt.Errorf("initialize raffle %s: %w", tierID, err)
	}

	e.metrics.ObserveRound(tier.ID, account.Round, 0)
	logger.Info("initialize raffle: done",
		zap.String("tier", tier.ID),
		zap.String("account", account.Address.ToRaw()),
		zap.String("vault", vault.ToRaw()),
	)
	return newReceipt(InstructionInitializeRaffle, account), nil
}
