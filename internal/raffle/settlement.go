package raffle

import (
	"fmt"

	"github.com/tonkeeper/tongo/ton"

	"tierraffle/internal/storage"
)

type payout struct {
	destination string
	to          ton.AccountID
	amount      uint64
}

// settle pays out a closed round from the vault inside tx and rolls the
// account over. The vault must drop by exactly tier.Payout(); the reentry
// transfer targets the vault itself and stays as next round's float.
func (e *Engine) settle(tx storage.Tx, tier Tier, account *storage.RaffleAccount, receiptID string) (*storage.Settlement, error) {
	vault := e.VaultAddress(tier.ID)

	before, err := tx.Balance(vault)
	if err != nil {
		return nil, err
	}
	if before < tier.Pool() {
		return nil, fmt.Errorf("vault %s holds %d, round needs %d: %w", vault.ToRaw(), before, tier.Pool(), storage.ErrInsufficientFunds)
	}

	payouts := []payout{
		{destination: "prize", to: account.Winner, amount: tier.PrizeAmount},
		{destination: "reentry", to: vault, amount: tier.ReentryAmount},
		{destination: "burn", to: e.burnWallet, amount: tier.BurnAmount},
		{destination: "ops", to: e.opsWallet, amount: tier.OpsAmount},
	}
	for _, p := range payouts {
		if err := tx.Transfer(vault, p.to, p.amount); err != nil {
			return nil, fmt.Errorf("settle %s %s: %w", tier.ID, p.destination, err)
		}
	}

	after, err := tx.Balance(vault)
	if err != nil {
		return nil, err
	}
	if before-after != tier.Payout() {
		return nil, fmt.Errorf("settle %s: vault moved %d, expected %d", tier.ID, before-after, tier.Payout())
	}

	settlement := &storage.Settlement{
		ReceiptID:     receiptID,
		TierID:        tier.ID,
		Round:         account.Round,
		Winner:        account.Winner,
		EntropySlot:   account.WinnerSlot,
		EntropyHash:   account.WinnerEntropy,
		PrizeAmount:   tier.PrizeAmount,
		ReentryAmount: tier.ReentryAmount,
		BurnAmount:    tier.BurnAmount,
		OpsAmount:     tier.OpsAmount,
		VaultBefore:   before,
		VaultAfter:    after,
		SettledAt:     e.nowFn().UTC(),
	}
	if err := tx.RecordSettlement(settlement); err != nil {
		return nil, err
	}

	rollover(account)
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	if err := tx.PutRaffleAccount(account); err != nil {
		return nil, err
	}

	return settlement, nil
}
