package tracker

import (
	"context"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"tierraffle/internal/logger"
	"tierraffle/internal/storage"
)

type RaffleAccountData struct {
	TierID              string
	Address             ton.AccountID
	Vault               ton.AccountID
	Round               uint64
	ParticipantsCount   uint8
	Status              storage.RaffleStatus
	Winner              ton.AccountID
	TicketPrice         uint64
	VaultBalance        uint64
	NeedsInitialization bool
	Err                 error
}

// GetRaffleData reads the tracked tiers in one bulk pass.
func (t *Tracker) GetRaffleData(ctx context.Context) ([]*RaffleAccountData, error) {
	states, err := t.engine.FetchAll(ctx, t.tierIDs)
	if err != nil {
		logger.Debug("get raffle data: cannot fetch tiers", zap.Error(err))
		return nil, err
	}

	data := make([]*RaffleAccountData, 0, len(states))
	for _, state := range states {
		entry := &RaffleAccountData{
			TierID:              state.Tier.ID,
			Address:             state.Address,
			Vault:               state.Vault,
			TicketPrice:         state.Tier.TicketPrice,
			VaultBalance:        state.VaultBalance,
			NeedsInitialization: state.NeedsInitialization,
			Err:                 state.Err,
		}
		if state.Account != nil {
			entry.Round = state.Account.Round
			entry.ParticipantsCount = state.Account.ParticipantsCount
			entry.Status = state.Account.Status
			entry.Winner = state.Account.Winner
		}
		data = append(data, entry)
	}

	return data, nil
}
