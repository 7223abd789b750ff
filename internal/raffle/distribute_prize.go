package raffle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/logger"
	"tierraffle/internal/storage"
)

// DistributePrize settles a closed round and reopens the tier for the next
// one. Anyone may call it. A non-zero expectedWinner must match the stored
// winner.
func (e *Engine) DistributePrize(ctx context.Context, tierID string, caller ton.AccountID, expectedWinner ton.AccountID) (receipt *Receipt, err error) {
	defer func() { e.metrics.ObserveInstruction(string(InstructionDistributePrize), err) }()

	tier, err := e.lookupTier(tierID)
	if err != nil {
		return nil, err
	}

	account, err := e.store.GetRaffleAccount(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("distribute prize %s: %w", tierID, err)
	}
	if err := e.verifyAccount(account, tier); err != nil {
		return nil, err
	}
	if account.Status != storage.RaffleStatusClosed {
		return nil, fmt.Errorf("%w: %s round %d has %d/%d participants", ErrRaffleNotClosed, tierID, account.Round, account.ParticipantsCount, MaxTickets)
	}
	if blockchain.IsNone(account.Winner) {
		return nil, fmt.Errorf("%w: %s round %d has no winner", ErrInvalidWinner, tierID, account.Round)
	}
	if !blockchain.IsNone(expectedWinner) && expectedWinner != account.Winner {
		return nil, fmt.Errorf("%w: expected %s, stored %s", ErrInvalidWinner, expectedWinner.ToRaw(), account.Winner.ToRaw())
	}

	settledRound := account.Round
	receiptID := uuid.NewString()

	var settlement *storage.Settlement
	err = e.store.Update(ctx, func(tx storage.Tx) error {
		settled, err := e.settle(tx, tier, account, receiptID)
		if err != nil {
			return err
		}
		settlement = settled
		return nil
	})
	if err != nil {
		logger.Debug("distribute prize: commit rejected", zap.String("tier", tierID), zap.Error(err))
		return nil, fmt.Errorf("distribute prize %s: %w", tierID, err)
	}

	e.metrics.ObserveSettlement(tierID, settledRound+1, tier.PrizeAmount, tier.BurnAmount, tier.OpsAmount)
	logger.Info("distribute prize: done",
		zap.String("tier", tierID),
		zap.Uint64("round", settledRound),
		zap.String("winner", settlement.Winner.ToRaw()),
		zap.String("caller", caller.ToRaw()),
		zap.Uint64("vault", settlement.VaultAfter),
	)

	return &Receipt{
		ID:          receiptID,
		Instruction: InstructionDistributePrize,
		TierID:      tierID,
		Round:       settledRound,
		Closed:      true,
		Winner:      settlement.Winner,
		Settlement:  settlement,
	}, nil
}
