package raffle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompiledTiersConserveValue(t *testing.T) {
	require.NoError(t, ValidateTiers(Tiers()))

	for _, tier := range Tiers() {
		t.Run(tier.ID, func(t *testing.T) {
			require.Equal(t, tier.TicketPrice*12, tier.PrizeAmount+tier.ReentryAmount+tier.BurnAmount+tier.OpsAmount)
			require.Equal(t, tier.Pool(), tier.Payout()+tier.ReentryAmount)
		})
	}
}

func TestLookupTier(t *testing.T) {
	tier, ok := LookupTier("tier-1")
	require.True(t, ok)
	require.Equal(t, uint64(10_000), tier.TicketPrice)
	require.Equal(t, uint64(110_000), tier.Payout())

	_, ok = LookupTier("tier-9")
	require.False(t, ok)
	require.Equal(t, []string{"tier-1", "tier-2", "tier-3", "tier-4"}, TierIDs())
}

func TestValidateTiersRejectsBrokenTables(t *testing.T) {
	valid := Tier{ID: "t", TicketPrice: 10, PrizeAmount: 100, ReentryAmount: 10, BurnAmount: 8, OpsAmount: 2}

	cases := map[string][]Tier{
		"empty":          nil,
		"leaks a unit":   {{ID: "t", TicketPrice: 10, PrizeAmount: 100, ReentryAmount: 10, BurnAmount: 8, OpsAmount: 1}},
		"mints a unit":   {{ID: "t", TicketPrice: 10, PrizeAmount: 100, ReentryAmount: 10, BurnAmount: 8, OpsAmount: 3}},
		"zero price":     {{ID: "t"}},
		"duplicate id":   {valid, valid},
		"empty id":       {{TicketPrice: 10, PrizeAmount: 120}},
		"long id":        {{ID: "tier-with-an-identifier-longer-than-a-seed", TicketPrice: 10, PrizeAmount: 120}},
		"pool overflows": {{ID: "t", TicketPrice: math.MaxUint64, PrizeAmount: math.MaxUint64}},
		"split overflows uint64": {{
			ID: "t", TicketPrice: 1, PrizeAmount: math.MaxUint64, ReentryAmount: 13,
		}},
	}
	for name, table := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateTiers(table))
		})
	}
}
