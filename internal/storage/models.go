package storage

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tonkeeper/tongo/ton"
)

// MaxParticipants is the fixed slot count of every raffle account.
const MaxParticipants = 12

type RaffleStatus string

const (
	RaffleStatusOpen   RaffleStatus = "open"
	RaffleStatusClosed RaffleStatus = "closed"
)

type RaffleAccount struct {
	Address           ton.AccountID
	Authority         ton.AccountID
	TierID            string
	Round             uint64
	Participants      [MaxParticipants]ton.AccountID
	ParticipantsCount uint8
	Winner            ton.AccountID
	WinnerSlot        uint64
	WinnerEntropy     [32]byte
	Status            RaffleStatus
	Version           uint64
}

func (a *RaffleAccount) Clone() *RaffleAccount {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// ActiveParticipants returns the filled slots in purchase order.
func (a *RaffleAccount) ActiveParticipants() []ton.AccountID {
	count := min(int(a.ParticipantsCount), MaxParticipants)
	participants := make([]ton.AccountID, count)
	copy(participants, a.Participants[:count])
	return participants
}

type Settlement struct {
	ReceiptID     string
	TierID        string
	Round         uint64
	Winner        ton.AccountID
	EntropySlot   uint64
	EntropyHash   [32]byte
	PrizeAmount   uint64
	ReentryAmount uint64
	BurnAmount    uint64
	OpsAmount     uint64
	VaultBefore   uint64
	VaultAfter    uint64
	SettledAt     time.Time
}

type raffleAccountRow struct {
	TierID            string `gorm:"primaryKey"`
	Address           string `gorm:"uniqueIndex;not null"`
	Authority         string `gorm:"not null"`
	Round             uint64 `gorm:"not null"`
	Participants      string `gorm:"not null"`
	ParticipantsCount uint8  `gorm:"not null;default:0"`
	Winner            string `gorm:"not null;default:''"`
	WinnerSlot        uint64 `gorm:"not null;default:0"`
	WinnerEntropy     string `gorm:"not null;default:''"`
	Status            string `gorm:"not null"`
	Version           uint64 `gorm:"not null"`
}

func (raffleAccountRow) TableName() string { return "raffle_accounts" }

type tokenBalanceRow struct {
	Owner  string `gorm:"primaryKey"`
	Amount uint64 `gorm:"not null;default:0"`
}

func (tokenBalanceRow) TableName() string { return "token_balances" }

type settlementRow struct {
	ID            int64  `gorm:"primaryKey"`
	ReceiptID     string `gorm:"uniqueIndex;not null"`
	TierID        string `gorm:"uniqueIndex:idx_settlement_tier_round;not null"`
	Round         uint64 `gorm:"uniqueIndex:idx_settlement_tier_round;not null"`
	Winner        string `gorm:"not null"`
	EntropySlot   uint64 `gorm:"not null"`
	EntropyHash   string `gorm:"not null"`
	PrizeAmount   uint64 `gorm:"not null"`
	ReentryAmount uint64 `gorm:"not null"`
	BurnAmount    uint64 `gorm:"not null"`
	OpsAmount     uint64 `gorm:"not null"`
	VaultBefore   uint64 `gorm:"not null"`
	VaultAfter    uint64 `gorm:"not null"`
	SettledAt     time.Time
}

func (settlementRow) TableName() string { return "settlements" }

func formatAddress(address ton.AccountID) string {
	if address == (ton.AccountID{}) {
		return ""
	}
	return address.ToRaw()
}

func parseAddress(raw string) (ton.AccountID, error) {
	if raw == "" {
		return ton.AccountID{}, nil
	}
	return ton.ParseAccountID(raw)
}

func parseHash(raw string) ([32]byte, error) {
	var hash [32]byte
	if raw == "" {
		return hash, nil
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return hash, err
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("hash length %d", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

func formatHash(hash [32]byte) string {
	if hash == ([32]byte{}) {
		return ""
	}
	return hex.EncodeToString(hash[:])
}

func newRaffleAccountRow(account *RaffleAccount) *raffleAccountRow {
	participants := make([]string, MaxParticipants)
	for i, participant := range account.Participants {
		participants[i] = formatAddress(participant)
	}

	return &raffleAccountRow{
		TierID:            account.TierID,
		Address:           formatAddress(account.Address),
		Authority:         formatAddress(account.Authority),
		Round:             account.Round,
		Participants:      strings.Join(participants, ","),
		ParticipantsCount: account.ParticipantsCount,
		Winner:            formatAddress(account.Winner),
		WinnerSlot:        account.WinnerSlot,
		WinnerEntropy:     formatHash(account.WinnerEntropy),
		Status:            string(account.Status),
		Version:           account.Version,
	}
}

func (r *raffleAccountRow) toRaffleAccount() (*RaffleAccount, error) {
	account := &RaffleAccount{
		TierID:            r.TierID,
		Round:             r.Round,
		ParticipantsCount: r.ParticipantsCount,
		WinnerSlot:        r.WinnerSlot,
		Status:            RaffleStatus(r.Status),
		Version:           r.Version,
	}

	var err error
	if account.Address, err = parseAddress(r.Address); err != nil {
		return nil, fmt.Errorf("storage: raffle account %s address: %w", r.TierID, err)
	}
	if account.Authority, err = parseAddress(r.Authority); err != nil {
		return nil, fmt.Errorf("storage: raffle account %s authority: %w", r.TierID, err)
	}
	if account.Winner, err = parseAddress(r.Winner); err != nil {
		return nil, fmt.Errorf("storage: raffle account %s winner: %w", r.TierID, err)
	}
	if account.WinnerEntropy, err = parseHash(r.WinnerEntropy); err != nil {
		return nil, fmt.Errorf("storage: raffle account %s winner entropy: %w", r.TierID, err)
	}

	slots := strings.Split(r.Participants, ",")
	if len(slots) != MaxParticipants {
		return nil, fmt.Errorf("storage: raffle account %s has %d participant slots", r.TierID, len(slots))
	}
	for i, slot := range slots {
		if account.Participants[i], err = parseAddress(slot); err != nil {
			return nil, fmt.Errorf("storage: raffle account %s participant %d: %w", r.TierID, i, err)
		}
	}

	return account, nil
}

func newSettlementRow(settlement *Settlement) *settlementRow {
	return &settlementRow{
		ReceiptID:     settlement.ReceiptID,
		TierID:        settlement.TierID,
		Round:         settlement.Round,
		Winner:        formatAddress(settlement.Winner),
		EntropySlot:   settlement.EntropySlot,
		EntropyHash:   formatHash(settlement.EntropyHash),
		PrizeAmount:   settlement.PrizeAmount,
		ReentryAmount: settlement.ReentryAmount,
		BurnAmount:    settlement.BurnAmount,
		OpsAmount:     settlement.OpsAmount,
		VaultBefore:   settlement.VaultBefore,
		VaultAfter:    settlement.VaultAfter,
		SettledAt:     settlement.SettledAt,
	}
}

func (r *settlementRow) toSettlement() (*Settlement, error) {
	winner, err := parseAddress(r.Winner)
	if err != nil {
		return nil, fmt.Errorf("storage: settlement %s winner: %w", r.ReceiptID, err)
	}
	hash, err := parseHash(r.EntropyHash)
	if err != nil {
		return nil, fmt.Errorf("storage: settlement %s entropy: %w", r.ReceiptID, err)
	}

	return &Settlement{
		ReceiptID:     r.ReceiptID,
		TierID:        r.TierID,
		Round:         r.Round,
		Winner:        winner,
		EntropySlot:   r.EntropySlot,
		EntropyHash:   hash,
		PrizeAmount:   r.PrizeAmount,
		ReentryAmount: r.ReentryAmount,
		BurnAmount:    r.BurnAmount,
		OpsAmount:     r.OpsAmount,
		VaultBefore:   r.VaultBefore,
		VaultAfter:    r.VaultAfter,
		SettledAt:     r.SettledAt,
	}, nil
}
