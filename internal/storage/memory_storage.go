package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tonkeeper/tongo/ton"
)

// MemoryStorage keeps the ledger in process memory. Transactions buffer their
// writes and validate them on commit, so instructions against different tiers
// never wait on each other.
type MemoryStorage struct {
	mu          sync.RWMutex
	accounts    map[string]*RaffleAccount
	balances    map[ton.AccountID]uint64
	settlements map[string][]*Settlement
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts:    make(map[string]*RaffleAccount),
		balances:    make(map[ton.AccountID]uint64),
		settlements: make(map[string][]*Settlement),
	}
}

func (s *MemoryStorage) Close() error { return nil }

func (s *MemoryStorage) GetRaffleAccount(_ context.Context, tierID string) (*RaffleAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[tierID]
	if !ok {
		return nil, fmt.Errorf("raffle account %s: %w", tierID, ErrNotFound)
	}
	return account.Clone(), nil
}

func (s *MemoryStorage) Balance(_ context.Context, owner ton.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[owner], nil
}

func (s *MemoryStorage) Fund(ctx context.Context, owner ton.AccountID, amount uint64) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.Credit(owner, amount)
	})
}

func (s *MemoryStorage) Settlements(_ context.Context, tierID string) ([]*Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settlements := make([]*Settlement, 0, len(s.settlements[tierID]))
	for _, settlement := range s.settlements[tierID] {
		clone := *settlement
		settlements = append(settlements, &clone)
	}
	return settlements, nil
}

func (s *MemoryStorage) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		storage:  s,
		created:  make(map[string]*RaffleAccount),
		written:  make(map[string]*RaffleAccount),
		base:     make(map[string]uint64),
		credits:  make(map[ton.AccountID]uint64),
		debits:   make(map[ton.AccountID]uint64),
		newVault: make(map[ton.AccountID]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type memoryTx struct {
	storage     *MemoryStorage
	created     map[string]*RaffleAccount
	written     map[string]*RaffleAccount
	base        map[string]uint64
	credits     map[ton.AccountID]uint64
	debits      map[ton.AccountID]uint64
	newVault    map[ton.AccountID]struct{}
	settlements []*Settlement
}

func (t *memoryTx) GetRaffleAccount(tierID string) (*RaffleAccount, error) {
	if account, ok := t.written[tierID]; ok {
		return account.Clone(), nil
	}
	if account, ok := t.created[tierID]; ok {
		return account.Clone(), nil
	}
	return t.storage.GetRaffleAccount(context.Background(), tierID)
}

func (t *memoryTx) CreateRaffleAccount(account *RaffleAccount) error {
	if _, err := t.GetRaffleAccount(account.TierID); err == nil {
		return fmt.Errorf("raffle account %s: %w", account.TierID, ErrAlreadyExists)
	}
	account.Version = 1
	t.created[account.TierID] = account.Clone()
	return nil
}

func (t *memoryTx) PutRaffleAccount(account *RaffleAccount) error {
	current, err := t.GetRaffleAccount(account.TierID)
	if err != nil {
		return err
	}
	if current.Version != account.Version {
		return fmt.Errorf("raffle account %s at version %d: %w", account.TierID, account.Version, ErrConflict)
	}

	account.Version++
	if _, ok := t.created[account.TierID]; ok {
		t.created[account.TierID] = account.Clone()
		return nil
	}
	if _, ok := t.base[account.TierID]; !ok {
		t.base[account.TierID] = current.Version
	}
	t.written[account.TierID] = account.Clone()
	return nil
}

func (t *memoryTx) CreateVault(owner ton.AccountID) error {
	t.newVault[owner] = struct{}{}
	return nil
}

func (t *memoryTx) Balance(owner ton.AccountID) (uint64, error) {
	t.storage.mu.RLock()
	held := t.storage.balances[owner] + t.credits[owner]
	t.storage.mu.RUnlock()
	if held < t.debits[owner] {
		return 0, nil
	}
	return held - t.debits[owner], nil
}

func (t *memoryTx) Credit(owner ton.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	current, err := t.Balance(owner)
	if err != nil {
		return err
	}
	if err := checkCredit(owner, current, amount); err != nil {
		return err
	}
	t.credits[owner] += amount
	return nil
}

func (t *memoryTx) Transfer(from, to ton.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	available, err := t.Balance(from)
	if err != nil {
		return err
	}
	if available < amount {
		return fmt.Errorf("%s holds %d, needs %d: %w", from.ToRaw(), available, amount, ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	if err := t.Credit(to, amount); err != nil {
		return err
	}
	t.debits[from] += amount
	return nil
}

func (t *memoryTx) RecordSettlement(settlement *Settlement) error {
	clone := *settlement
	t.settlements = append(t.settlements, &clone)
	return nil
}

// commit re-validates every buffered write against the live state and applies
// them all, or none.
func (t *memoryTx) commit() error {
	s := t.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	for tierID := range t.created {
		if _, ok := s.accounts[tierID]; ok {
			return fmt.Errorf("raffle account %s: %w", tierID, ErrAlreadyExists)
		}
	}
	for tierID := range t.written {
		current, ok := s.accounts[tierID]
		if !ok {
			return fmt.Errorf("raffle account %s: %w", tierID, ErrNotFound)
		}
		if current.Version != t.base[tierID] {
			return fmt.Errorf("raffle account %s at version %d: %w", tierID, t.base[tierID], ErrConflict)
		}
	}
	for owner, debit := range t.debits {
		if s.balances[owner]+t.credits[owner] < debit {
			return fmt.Errorf("%s holds %d, needs %d: %w", owner.ToRaw(), s.balances[owner]+t.credits[owner], debit, ErrInsufficientFunds)
		}
	}
	for owner, credit := range t.credits {
		if s.balances[owner]+credit-t.debits[owner] > MaxBalance {
			return fmt.Errorf("%s holds %d, credit %d: %w", owner.ToRaw(), s.balances[owner], credit, ErrBalanceOverflow)
		}
	}
	for _, settlement := range t.settlements {
		for _, existing := range s.settlements[settlement.TierID] {
			if existing.Round == settlement.Round {
				return fmt.Errorf("settlement %s round %d: %w", settlement.TierID, settlement.Round, ErrAlreadyExists)
			}
		}
	}

	for tierID, account := range t.created {
		s.accounts[tierID] = account
	}
	for tierID, account := range t.written {
		s.accounts[tierID] = account
	}
	for owner := range t.newVault {
		if _, ok := s.balances[owner]; !ok {
			s.balances[owner] = 0
		}
	}
	for owner, credit := range t.credits {
		s.balances[owner] += credit
	}
	for owner, debit := range t.debits {
		s.balances[owner] -= debit
	}
	for _, settlement := range t.settlements {
		s.settlements[settlement.TierID] = append(s.settlements[settlement.TierID], settlement)
		sort.Slice(s.settlements[settlement.TierID], func(i, j int) bool {
			return s.settlements[settlement.TierID][i].Round < s.settlements[settlement.TierID][j].Round
		})
	}

	return nil
}
