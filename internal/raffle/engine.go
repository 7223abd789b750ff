// Package raffle runs the tiered raffle state machine: opening a tier,
// selling tickets, closing a round on the last slot and settling it.
package raffle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tonkeeper/tongo/ton"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/entropy"
	"tierraffle/internal/metrics"
	"tierraffle/internal/storage"
)

type Instruction string

const (
	InstructionInitializeRaffle Instruction = "initialize_raffle"
	InstructionBuyTicket        Instruction = "buy_ticket"
	InstructionDistributePrize  Instruction = "distribute_prize"
)

// Receipt is returned for every committed instruction.
type Receipt struct {
	ID                string
	Instruction       Instruction
	TierID            string
	Round             uint64
	ParticipantsCount uint8
	Closed            bool
	Winner            ton.AccountID
	Settlement        *storage.Settlement
}

type Options struct {
	Program ton.AccountID
	// Authority, when set, is the only identity allowed to initialize tiers.
	Authority  *ton.AccountID
	OpsWallet  ton.AccountID
	BurnWallet ton.AccountID
}

type Engine struct {
	store      storage.Storage
	entropy    entropy.Source
	program    ton.AccountID
	authority  *ton.AccountID
	opsWallet  ton.AccountID
	burnWallet ton.AccountID
	metrics    *metrics.RaffleMetrics
	nowFn      func() time.Time
}

// NewEngine validates the compiled tier table and wires the engine. A tier
// table that breaks conservation stops the process here.
func NewEngine(store storage.Storage, source entropy.Source, options Options) (*Engine, error) {
	if store == nil {
		return nil, errors.New("raffle engine: storage not configured")
	}
	if source == nil {
		return nil, errors.New("raffle engine: entropy source not configured")
	}
	if blockchain.IsNone(options.OpsWallet) || blockchain.IsNone(options.BurnWallet) {
		return nil, errors.New("raffle engine: ops and burn wallets are required")
	}
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}

	return &Engine{
		store:      store,
		entropy:    source,
		program:    options.Program,
		authority:  options.Authority,
		opsWallet:  options.OpsWallet,
		burnWallet: options.BurnWallet,
		nowFn:      time.Now,
	}, nil
}

// SetMetrics attaches prometheus collectors. Nil disables them.
func (e *Engine) SetMetrics(m *metrics.RaffleMetrics) { e.metrics = m }

// SetNowFunc overrides the settlement clock, mostly for tests.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func (e *Engine) RaffleAccountAddress(tierID string) ton.AccountID {
	return blockchain.RaffleAccountAddress(e.program, tierID)
}

func (e *Engine) VaultAddress(tierID string) ton.AccountID {
	return blockchain.VaultAddress(e.program, tierID)
}

// isProgramAddress reports whether address is derived from the program: a
// tier account or a tier vault. Such addresses never hold tickets.
func (e *Engine) isProgramAddress(address ton.AccountID) bool {
	for _, tier := range tiers {
		if address == e.RaffleAccountAddress(tier.ID) || address == e.VaultAddress(tier.ID) {
			return true
		}
	}
	return false
}

func (e *Engine) lookupTier(tierID string) (Tier, error) {
	tier, ok := LookupTier(tierID)
	if !ok {
		return Tier{}, fmt.Errorf("%w: %q", ErrInvalidTier, tierID)
	}
	return tier, nil
}

// verifyAccount rejects an account stored under the wrong tier or address.
func (e *Engine) verifyAccount(account *storage.RaffleAccount, tier Tier) error {
	if account.TierID != tier.ID || account.Address != e.RaffleAccountAddress(tier.ID) {
		return fmt.Errorf("%w: stored %q at %s", ErrInvalidRaffleAccount, account.TierID, account.Address.ToRaw())
	}
	return nil
}

func newReceipt(instruction Instruction, account *storage.RaffleAccount) *Receipt {
	return &Receipt{
		ID:                uuid.NewString(),
		Instruction:       instruction,
		TierID:            account.TierID,
		Round:             account.Round,
		ParticipantsCount: account.ParticipantsCount,
		Closed:            account.Status == storage.RaffleStatusClosed,
		Winner:            account.Winner,
	}
}
