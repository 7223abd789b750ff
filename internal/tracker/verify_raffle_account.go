package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tierraffle/internal/logger"
)

var ErrVaultShortfall = errors.New("tracker: vault holds less than the sold tickets")

// VerifyRaffleAccounts checks every initialized tier before the tracker
// starts: the stored account must sit at its derived address and the vault
// must cover the tickets sold in the current round.
func (t *Tracker) VerifyRaffleAccounts(ctx context.Context) error {
	logger.Debug("verify raffle accounts: verifying tiers...")

	data, err := t.GetRaffleData(ctx)
	if err != nil {
		logger.Error("verify raffle accounts: cannot read tiers", zap.Error(err))
		return err
	}

	for _, tier := range data {
		if tier.Err != nil {
			logger.Error("verify raffle accounts: invalid tier", zap.String("tier", tier.TierID), zap.Error(tier.Err))
			return fmt.Errorf("tier %s: %w", tier.TierID, tier.Err)
		}
		if tier.NeedsInitialization {
			logger.Warn("verify raffle accounts: tier is not initialized", zap.String("tier", tier.TierID))
			continue
		}

		sold := uint64(tier.ParticipantsCount) * tier.TicketPrice
		if tier.VaultBalance < sold {
			logger.Error("verify raffle accounts: vault shortfall",
				zap.String("tier", tier.TierID),
				zap.Uint64("vault", tier.VaultBalance),
				zap.Uint64("sold", sold),
			)
			return fmt.Errorf("%w: %s holds %d, sold %d", ErrVaultShortfall, tier.TierID, tier.VaultBalance, sold)
		}

		logger.Debug("verify raffle accounts: tier",
			zap.String("tier", tier.TierID),
			zap.String("address", tier.Address.ToRaw()),
			zap.Uint64("round", tier.Round),
			zap.Uint8("participants", tier.ParticipantsCount),
			zap.String("status", string(tier.Status)),
			zap.Uint64("vault", tier.VaultBalance),
		)
	}

	logger.Debug("verify raffle accounts: verifying tiers... done")
	return nil
}
