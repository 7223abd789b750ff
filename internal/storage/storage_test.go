package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/ton"
)

var (
	alice = ton.MustParseAccountID("0:a11ce00000000000000000000000000000000000000000000000000000000000")
	bob   = ton.MustParseAccountID("0:b0b0000000000000000000000000000000000000000000000000000000000000")
	vault = ton.MustParseAccountID("0:7a17000000000000000000000000000000000000000000000000000000000000")
)

func forEachStorage(t *testing.T, run func(t *testing.T, s Storage)) {
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryStorage())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSqliteStorage(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		run(t, s)
	})
}

func newAccount(tierID string) *RaffleAccount {
	return &RaffleAccount{
		Address:   ton.AccountID{Workchain: 0, Address: [32]byte{1, byte(len(tierID))}},
		Authority: alice,
		TierID:    tierID,
		Round:     1,
		Status:    RaffleStatusOpen,
	}
}

func createAccount(t *testing.T, s Storage, account *RaffleAccount) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx Tx) error {
		if err := tx.CreateRaffleAccount(account); err != nil {
			return err
		}
		return tx.CreateVault(vault)
	}))
}

func TestCreateAndGetRaffleAccount(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		_, err := s.GetRaffleAccount(ctx, "tier-1")
		require.ErrorIs(t, err, ErrNotFound)

		account := newAccount("tier-1")
		account.Participants[0] = bob
		account.ParticipantsCount = 1
		createAccount(t, s, account)

		stored, err := s.GetRaffleAccount(ctx, "tier-1")
		require.NoError(t, err)
		require.Equal(t, uint64(1), stored.Version)
		require.Equal(t, account.Address, stored.Address)
		require.Equal(t, alice, stored.Authority)
		require.Equal(t, []ton.AccountID{bob}, stored.ActiveParticipants())
		require.Equal(t, ton.AccountID{}, stored.Winner)
		require.Equal(t, RaffleStatusOpen, stored.Status)

		err = s.Update(ctx, func(tx Tx) error {
			return tx.CreateRaffleAccount(newAccount("tier-1"))
		})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestPutRaffleAccountComparesVersion(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		createAccount(t, s, newAccount("tier-1"))

		first, err := s.GetRaffleAccount(ctx, "tier-1")
		require.NoError(t, err)
		stale := first.Clone()

		first.Participants[0] = alice
		first.ParticipantsCount = 1
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.PutRaffleAccount(first)
		}))
		require.Equal(t, uint64(2), first.Version)

		stale.Participants[0] = bob
		stale.ParticipantsCount = 1
		err = s.Update(ctx, func(tx Tx) error {
			return tx.PutRaffleAccount(stale)
		})
		require.ErrorIs(t, err, ErrConflict)

		stored, err := s.GetRaffleAccount(ctx, "tier-1")
		require.NoError(t, err)
		require.Equal(t, []ton.AccountID{alice}, stored.ActiveParticipants())
		require.Equal(t, uint64(2), stored.Version)
	})
}

func TestTransfersAreAtomicWithTheTransaction(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		createAccount(t, s, newAccount("tier-1"))
		require.NoError(t, s.Fund(ctx, alice, 100))

		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.Transfer(alice, vault, 60); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		balance, err := s.Balance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(100), balance)
		balance, err = s.Balance(ctx, vault)
		require.NoError(t, err)
		require.Zero(t, balance)

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(alice, vault, 60)
		}))
		balance, err = s.Balance(ctx, vault)
		require.NoError(t, err)
		require.Equal(t, uint64(60), balance)

		err = s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(alice, bob, 41)
		})
		require.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestSelfTransferKeepsBalance(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		require.NoError(t, s.Fund(ctx, vault, 50))

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(vault, vault, 50)
		}))
		balance, err := s.Balance(ctx, vault)
		require.NoError(t, err)
		require.Equal(t, uint64(50), balance)

		err = s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(vault, vault, 51)
		})
		require.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestSettlementsAreOrderedAndUniquePerRound(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		settledAt := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

		for _, round := range []uint64{2, 1} {
			settlement := &Settlement{
				ReceiptID:   "receipt-" + string(rune('0'+round)),
				TierID:      "tier-1",
				Round:       round,
				Winner:      bob,
				EntropySlot: 40 + round,
				EntropyHash: [32]byte{byte(round)},
				PrizeAmount: 100000,
				SettledAt:   settledAt,
			}
			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				return tx.RecordSettlement(settlement)
			}))
		}

		err := s.Update(ctx, func(tx Tx) error {
			return tx.RecordSettlement(&Settlement{ReceiptID: "again", TierID: "tier-1", Round: 1, Winner: bob})
		})
		require.Error(t, err)

		settlements, err := s.Settlements(ctx, "tier-1")
		require.NoError(t, err)
		require.Len(t, settlements, 2)
		require.Equal(t, uint64(1), settlements[0].Round)
		require.Equal(t, uint64(2), settlements[1].Round)
		require.Equal(t, bob, settlements[0].Winner)
		require.Equal(t, [32]byte{1}, settlements[0].EntropyHash)
	})
}

func TestCreditsCannotExceedMaxBalance(t *testing.T) {
	forEachStorage(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		err := s.Fund(ctx, bob, math.MaxUint64)
		require.ErrorIs(t, err, ErrBalanceOverflow)
		balance, err := s.Balance(ctx, bob)
		require.NoError(t, err)
		require.Zero(t, balance)

		require.NoError(t, s.Fund(ctx, alice, MaxBalance))
		err = s.Fund(ctx, alice, 2)
		require.ErrorIs(t, err, ErrBalanceOverflow)
		balance, err = s.Balance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, MaxBalance, balance)

		require.NoError(t, s.Fund(ctx, bob, 10))
		err = s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(bob, alice, 1)
		})
		require.ErrorIs(t, err, ErrBalanceOverflow)
		balance, err = s.Balance(ctx, bob)
		require.NoError(t, err)
		require.Equal(t, uint64(10), balance)

		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.Transfer(alice, vault, MaxBalance)
		}))
		balance, err = s.Balance(ctx, vault)
		require.NoError(t, err)
		require.Equal(t, MaxBalance, balance)
	})
}
