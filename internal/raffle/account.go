package raffle

import (
	"fmt"

	"github.com/tonkeeper/tongo/ton"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/entropy"
	"tierraffle/internal/storage"
)

func newRaffleAccount(program ton.AccountID, tier Tier, authority ton.AccountID) *storage.RaffleAccount {
	return &storage.RaffleAccount{
		Address:   blockchain.RaffleAccountAddress(program, tier.ID),
		Authority: authority,
		TierID:    tier.ID,
		Round:     1,
		Status:    storage.RaffleStatusOpen,
	}
}

func appendParticipant(account *storage.RaffleAccount, buyer ton.AccountID) error {
	if int(account.ParticipantsCount) >= MaxTickets {
		return ErrRaffleFull
	}
	account.Participants[account.ParticipantsCount] = buyer
	account.ParticipantsCount++
	return nil
}

// closeRound fixes the winner from sample. It runs once per round, on the
// purchase that fills the last slot.
func closeRound(account *storage.RaffleAccount, sample entropy.Sample) {
	index := WinnerIndex(sample.Hash, MaxTickets)
	account.Winner = account.Participants[index]
	account.WinnerSlot = sample.Slot
	account.WinnerEntropy = sample.Hash
	account.Status = storage.RaffleStatusClosed
}

func rollover(account *storage.RaffleAccount) {
	account.Participants = [MaxTickets]ton.AccountID{}
	account.ParticipantsCount = 0
	account.Winner = blockchain.None
	account.WinnerSlot = 0
	account.WinnerEntropy = [32]byte{}
	account.Status = storage.RaffleStatusOpen
	account.Round++
}

// checkAccount guards every write: count bounds, status/winner agreement and
// empty slots past the count.
func checkAccount(account *storage.RaffleAccount) error {
	count := int(account.ParticipantsCount)
	if count > MaxTickets {
		return fmt.Errorf("%w: %d participants", ErrRaffleFull, count)
	}
	if account.Round == 0 {
		return fmt.Errorf("raffle: account %s has round 0", account.TierID)
	}

	closed := account.Status == storage.RaffleStatusClosed
	hasWinner := !blockchain.IsNone(account.Winner)
	switch {
	case account.Status != storage.RaffleStatusOpen && !closed:
		return fmt.Errorf("raffle: account %s has unknown status %q", account.TierID, account.Status)
	case closed && (count != MaxTickets || !hasWinner):
		return fmt.Errorf("raffle: account %s is closed with %d participants", account.TierID, count)
	case !closed && hasWinner:
		return fmt.Errorf("raffle: account %s is open with a winner", account.TierID)
	}

	for i := count; i < MaxTickets; i++ {
		if !blockchain.IsNone(account.Participants[i]) {
			return fmt.Errorf("raffle: account %s has a participant past slot %d", account.TierID, count)
		}
	}
	return nil
}
