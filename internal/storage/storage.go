package storage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tonkeeper/tongo/ton"
)

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrAlreadyExists     = errors.New("storage: already exists")
	ErrConflict          = errors.New("storage: account changed since it was read")
	ErrInsufficientFunds = errors.New("storage: insufficient funds")
	ErrBalanceOverflow   = errors.New("storage: balance would exceed the maximum")
)

// MaxBalance is the largest balance either store accepts. sqlite integers
// are signed 64-bit.
const MaxBalance uint64 = math.MaxInt64

// checkCredit rejects a credit that would push current past MaxBalance.
func checkCredit(owner ton.AccountID, current, amount uint64) error {
	if amount > MaxBalance || current > MaxBalance-amount {
		return fmt.Errorf("%s holds %d, credit %d: %w", owner.ToRaw(), current, amount, ErrBalanceOverflow)
	}
	return nil
}

// Storage is the ledger account store. Raffle accounts are keyed by tier id,
// token balances by owner address.
type Storage interface {
	// raffle account
	GetRaffleAccount(ctx context.Context, tierID string) (*RaffleAccount, error)

	// token balance
	Balance(ctx context.Context, owner ton.AccountID) (uint64, error)
	Fund(ctx context.Context, owner ton.AccountID, amount uint64) error

	// settlement history
	Settlements(ctx context.Context, tierID string) ([]*Settlement, error)

	// Update runs fn as one atomic unit. Returning an error from fn discards
	// every effect made through the transaction.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the view of the ledger inside one atomic unit.
type Tx interface {
	GetRaffleAccount(tierID string) (*RaffleAccount, error)
	CreateRaffleAccount(account *RaffleAccount) error
	// PutRaffleAccount commits the account only if the stored version still
	// equals account.Version, returning ErrConflict otherwise. On success the
	// version is advanced in place.
	PutRaffleAccount(account *RaffleAccount) error

	CreateVault(owner ton.AccountID) error
	Balance(owner ton.AccountID) (uint64, error)
	Credit(owner ton.AccountID, amount uint64) error
	Transfer(from, to ton.AccountID, amount uint64) error

	RecordSettlement(settlement *Settlement) error
}
