package raffle

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"tierraffle/internal/storage"
)

// MaxTickets is the slot count shared by every tier.
const MaxTickets = storage.MaxParticipants

// maxTierIDLength bounds the tier id so it fits a single derivation seed.
const maxTierIDLength = 32

// Tier is one fixed-economics raffle configuration. Amounts are in the
// smallest token unit.
type Tier struct {
	ID            string
	TicketPrice   uint64
	PrizeAmount   uint64
	ReentryAmount uint64
	BurnAmount    uint64
	OpsAmount     uint64
}

// Pool is what a full round collects.
func (t Tier) Pool() uint64 {
	return t.TicketPrice * MaxTickets
}

// Payout is what settlement moves out of the vault. The reentry amount stays.
func (t Tier) Payout() uint64 {
	return t.PrizeAmount + t.BurnAmount + t.OpsAmount
}

var tiers = []Tier{
	{
		ID:            "tier-1",
		TicketPrice:   10_000,
		PrizeAmount:   100_000,
		BurnAmount:    8_000,
		ReentryAmount: 10_000,
		OpsAmount:     2_000,
	},
	{
		ID:            "tier-2",
		TicketPrice:   100_000,
		PrizeAmount:   1_000_000,
		BurnAmount:    80_000,
		ReentryAmount: 100_000,
		OpsAmount:     20_000,
	},
	{
		ID:            "tier-3",
		TicketPrice:   1_000_000,
		PrizeAmount:   10_000_000,
		BurnAmount:    800_000,
		ReentryAmount: 1_000_000,
		OpsAmount:     200_000,
	},
	{
		ID:            "tier-4",
		TicketPrice:   10_000_000,
		PrizeAmount:   100_000_000,
		BurnAmount:    8_000_000,
		ReentryAmount: 10_000_000,
		OpsAmount:     2_000_000,
	},
}

var tiersByID = func() map[string]Tier {
	byID := make(map[string]Tier, len(tiers))
	for _, tier := range tiers {
		byID[tier.ID] = tier
	}
	return byID
}()

// Tiers returns the compiled tier table in display order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func TierIDs() []string {
	ids := make([]string, len(tiers))
	for i, tier := range tiers {
		ids[i] = tier.ID
	}
	return ids
}

func LookupTier(id string) (Tier, bool) {
	tier, ok := tiersByID[id]
	return tier, ok
}

// ValidateTiers checks the conservation law for every tier:
// prize + reentry + burn + ops == ticket price * MaxTickets, computed without
// overflow. It also rejects empty, duplicate and oversized ids.
func ValidateTiers(table []Tier) error {
	if len(table) == 0 {
		return errors.New("raffle: no tiers configured")
	}

	seen := make(map[string]struct{}, len(table))
	for _, tier := range table {
		if tier.ID == "" || len(tier.ID) > maxTierIDLength {
			return fmt.Errorf("raffle: tier id %q must be 1..%d bytes", tier.ID, maxTierIDLength)
		}
		if _, dup := seen[tier.ID]; dup {
			return fmt.Errorf("raffle: duplicate tier id %q", tier.ID)
		}
		seen[tier.ID] = struct{}{}

		if tier.TicketPrice == 0 {
			return fmt.Errorf("raffle: tier %s has a zero ticket price", tier.ID)
		}

		pool := new(uint256.Int).Mul(uint256.NewInt(tier.TicketPrice), uint256.NewInt(MaxTickets))
		if !pool.IsUint64() {
			return fmt.Errorf("raffle: tier %s pool overflows", tier.ID)
		}

		split := uint256.NewInt(tier.PrizeAmount)
		split.Add(split, uint256.NewInt(tier.ReentryAmount))
		split.Add(split, uint256.NewInt(tier.BurnAmount))
		split.Add(split, uint256.NewInt(tier.OpsAmount))
		if !split.Eq(pool) {
			return fmt.Errorf("raffle: tier %s splits %s of a %s pool", tier.ID, split.Dec(), pool.Dec())
		}
	}

	return nil
}
