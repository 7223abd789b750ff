package raffle

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/logger"
	"tierraffle/internal/storage"
)

// BuyTicket moves exactly one ticket price from buyer into the tier vault and
// takes the next slot. The purchase that fills the last slot also draws the
// winner from the most recent recorded entropy and closes the round, in the
// same commit.
func (e *Engine) BuyTicket(ctx context.Context, tierID string, buyer ton.AccountID, payment uint64) (receipt *Receipt, err error) {
	defer func() { e.metrics.ObserveInstruction(string(InstructionBuyTicket), err) }()

	tier, err := e.lookupTier(tierID)
	if err != nil {
		return nil, err
	}
	if blockchain.IsNone(buyer) {
		return nil, ErrInvalidParticipant
	}
	if e.isProgramAddress(buyer) {
		return nil, fmt.Errorf("%w: %s is a raffle account or vault", ErrInvalidParticipant, buyer.ToRaw())
	}

	account, err := e.store.GetRaffleAccount(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("buy ticket %s: %w", tierID, err)
	}
	if err := e.verifyAccount(account, tier); err != nil {
		return nil, err
	}
	if account.Status != storage.RaffleStatusOpen {
		return nil, fmt.Errorf("%w: %s round %d", ErrRaffleNotOpen, tierID, account.Round)
	}
	if int(account.ParticipantsCount) >= MaxTickets {
		return nil, fmt.Errorf("%w: %s round %d", ErrRaffleFull, tierID, account.Round)
	}
	if payment != tier.TicketPrice {
		return nil, fmt.Errorf("%w: got %d, ticket costs %d", ErrInvalidPayment, payment, tier.TicketPrice)
	}

	if err := appendParticipant(account, buyer); err != nil {
		return nil, err
	}

	if int(account.ParticipantsCount) == MaxTickets {
		sample, err := e.entropy.MostRecent(ctx)
		if err != nil {
			logger.Warn("buy ticket: entropy unavailable at closing", zap.String("tier", tierID), zap.Error(err))
			return nil, errors.Join(ErrSlotHashesUnavailable, err)
		}
		closeRound(account, sample)
		logger.Debug("buy ticket: round closed",
			zap.String("tier", tierID),
			zap.Uint64("round", account.Round),
			zap.Uint64("slot", sample.Slot),
			zap.String("winner", account.Winner.ToRaw()),
		)
	}

	if err := checkAccount(account); err != nil {
		return nil, err
	}

	vault := e.VaultAddress(tierID)
	err = e.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Transfer(buyer, vault, payment); err != nil {
			return err
		}
		return tx.PutRaffleAccount(account)
	})
	if err != nil {
		logger.Debug("buy ticket: commit rejected", zap.String("tier", tierID), zap.Error(err))
		return nil, fmt.Errorf("buy ticket %s: %w", tierID, err)
	}

	e.metrics.ObserveTicket(tierID, account.ParticipantsCount)
	logger.Info("buy ticket: done",
		zap.String("tier", tierID),
		zap.Uint64("round", account.Round),
		zap.String("buyer", buyer.ToRaw()),
		zap.Uint8("participants", account.ParticipantsCount),
	)
	return newReceipt(InstructionBuyTicket, account), nil
}
