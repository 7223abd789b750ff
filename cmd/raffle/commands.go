package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tonkeeper/tongo/ton"
	"gopkg.in/urfave/cli.v1"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/entropy"
	"tierraffle/internal/raffle"
	"tierraffle/internal/tracker"
)

var tierFlag = cli.StringFlag{
	Name:  "tier",
	Value: "tier-1",
	Usage: "tier id (" + strings.Join(raffle.TierIDs(), ", ") + ")",
}

var initCommand = cli.Command{
	Name:  "init",
	Usage: "initialize a tier account and its vault",
	Flags: []cli.Flag{
		tierFlag,
		cli.StringFlag{Name: "authority", Usage: "authority address, defaults to RAFFLE_AUTHORITY"},
	},
	Action: func(c *cli.Context) error {
		authority, err := authorityFrom(c)
		if err != nil {
			return err
		}
		receipt, err := env.engine.InitializeRaffle(context.Background(), c.String("tier"), authority)
		if err != nil {
			return describe(err)
		}
		fmt.Printf("initialized %s round %d\n", receipt.TierID, receipt.Round)
		fmt.Printf("  account %s\n", env.engine.RaffleAccountAddress(receipt.TierID).ToRaw())
		fmt.Printf("  vault   %s\n", env.engine.VaultAddress(receipt.TierID).ToRaw())
		return nil
	},
}

var fundCommand = cli.Command{
	Name:      "fund",
	Usage:     "credit tokens to an address on the local ledger",
	ArgsUsage: "<address> <amount>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.NewExitError("fund expects <address> <amount>", 2)
		}
		owner, err := parseAddress("address", c.Args().Get(0))
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}

		ctx := context.Background()
		if err := env.store.Fund(ctx, owner, amount); err != nil {
			return err
		}
		balance, err := env.store.Balance(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("%s balance %d\n", owner.ToRaw(), balance)
		return nil
	},
}

var buyCommand = cli.Command{
	Name:  "buy",
	Usage: "buy one ticket",
	Flags: []cli.Flag{
		tierFlag,
		cli.StringFlag{Name: "buyer", Usage: "buyer address"},
		cli.Uint64Flag{Name: "amount", Usage: "payment, defaults to the ticket price"},
	},
	Action: func(c *cli.Context) error {
		tier, ok := raffle.LookupTier(c.String("tier"))
		if !ok {
			return describe(fmt.Errorf("%w: %q", raffle.ErrInvalidTier, c.String("tier")))
		}
		buyer, err := parseAddress("buyer", c.String("buyer"))
		if err != nil {
			return err
		}
		payment := c.Uint64("amount")
		if payment == 0 {
			payment = tier.TicketPrice
		}

		ctx := context.Background()
		if _, err := entropy.Refresh(ctx, env.history, env.feeder); err != nil {
			return fmt.Errorf("refresh entropy: %w", err)
		}

		receipt, err := tracker.RetryOnConflict(ctx, tracker.DefaultConflictRetries, func() (*raffle.Receipt, error) {
			return env.engine.BuyTicket(ctx, tier.ID, buyer, payment)
		})
		if err != nil {
			return describe(err)
		}

		fmt.Printf("ticket %s: %s round %d, %d/%d participants\n",
			receipt.ID, receipt.TierID, receipt.Round, receipt.ParticipantsCount, raffle.MaxTickets)
		if receipt.Closed {
			fmt.Printf("round closed, winner %s\n", receipt.Winner.ToRaw())
		}
		return nil
	},
}

var distributeCommand = cli.Command{
	Name:  "distribute",
	Usage: "settle a closed round and open the next one",
	Flags: []cli.Flag{
		tierFlag,
		cli.StringFlag{Name: "caller", Usage: "caller address, any account may settle"},
		cli.StringFlag{Name: "winner", Usage: "expected winner, checked against the stored one"},
	},
	Action: func(c *cli.Context) error {
		caller, err := optionalAddress("caller", c.String("caller"))
		if err != nil {
			return err
		}
		winner, err := optionalAddress("winner", c.String("winner"))
		if err != nil {
			return err
		}

		ctx := context.Background()
		receipt, err := tracker.RetryOnConflict(ctx, tracker.DefaultConflictRetries, func() (*raffle.Receipt, error) {
			return env.engine.DistributePrize(ctx, c.String("tier"), caller, winner)
		})
		if err != nil {
			return describe(err)
		}

		s := receipt.Settlement
		fmt.Printf("settled %s round %d (receipt %s)\n", receipt.TierID, receipt.Round, receipt.ID)
		fmt.Printf("  winner  %s +%d\n", s.Winner.ToRaw(), s.PrizeAmount)
		fmt.Printf("  burn    %d\n", s.BurnAmount)
		fmt.Printf("  ops     %d\n", s.OpsAmount)
		fmt.Printf("  reentry %d\n", s.ReentryAmount)
		fmt.Printf("  vault   %d -> %d\n", s.VaultBefore, s.VaultAfter)
		return nil
	},
}

var statusCommand = cli.Command{
	Name:      "status",
	Usage:     "show every tier, or the given ones",
	ArgsUsage: "[tier...]",
	Action: func(c *cli.Context) error {
		tierIDs := []string(c.Args())
		if len(tierIDs) == 0 {
			tierIDs = raffle.TierIDs()
		}

		states, err := env.engine.FetchAll(context.Background(), tierIDs)
		if err != nil {
			return describe(err)
		}
		for _, state := range states {
			if state.Err != nil {
				fmt.Printf("%-8s unavailable: %v\n", state.Tier.ID, describe(state.Err))
				continue
			}
			if state.NeedsInitialization {
				fmt.Printf("%-8s not initialized (account %s)\n", state.Tier.ID, state.Address.ToRaw())
				continue
			}
			account := state.Account
			fmt.Printf("%-8s round %-4d %-6s %2d/%d participants  vault %d  price %d\n",
				state.Tier.ID, account.Round, account.Status, account.ParticipantsCount, raffle.MaxTickets,
				state.VaultBalance, state.Tier.TicketPrice)
			if !blockchain.IsNone(account.Winner) {
				fmt.Printf("         winner %s (slot %d)\n", account.Winner.ToRaw(), account.WinnerSlot)
			}
		}
		return nil
	},
}

var balanceCommand = cli.Command{
	Name:      "balance",
	Usage:     "show the token balance of an address",
	ArgsUsage: "<address>",
	Action: func(c *cli.Context) error {
		owner, err := parseAddress("address", c.Args().First())
		if err != nil {
			return err
		}
		balance, err := env.store.Balance(context.Background(), owner)
		if err != nil {
			return err
		}
		fmt.Printf("%s balance %d\n", owner.ToRaw(), balance)
		return nil
	},
}

var historyCommand = cli.Command{
	Name:  "history",
	Usage: "list the settled rounds of a tier",
	Flags: []cli.Flag{tierFlag},
	Action: func(c *cli.Context) error {
		settlements, err := env.engine.Settlements(context.Background(), c.String("tier"))
		if err != nil {
			return describe(err)
		}
		if len(settlements) == 0 {
			fmt.Println("no settled rounds")
			return nil
		}
		for _, s := range settlements {
			fmt.Printf("round %-4d %s winner %s prize %d slot %d\n",
				s.Round, s.SettledAt.Format("2006-01-02 15:04:05"), s.Winner.ToRaw(), s.PrizeAmount, s.EntropySlot)
		}
		return nil
	},
}

func authorityFrom(c *cli.Context) (ton.AccountID, error) {
	if raw := c.String("authority"); raw != "" {
		return parseAddress("authority", raw)
	}
	if env.configuration.Authority != nil {
		return *env.configuration.Authority, nil
	}
	return blockchain.None, cli.NewExitError("--authority is required when RAFFLE_AUTHORITY is not set", 2)
}

func parseAddress(name, raw string) (ton.AccountID, error) {
	if raw == "" {
		return blockchain.None, cli.NewExitError(name+" is required", 2)
	}
	address, err := ton.ParseAccountID(raw)
	if err != nil {
		return blockchain.None, fmt.Errorf("%s: %w", name, err)
	}
	return address, nil
}

func optionalAddress(name, raw string) (ton.AccountID, error) {
	if raw == "" {
		return blockchain.None, nil
	}
	return parseAddress(name, raw)
}

// describe prefixes program errors with their numeric code.
func describe(err error) error {
	if code, ok := raffle.Code(err); ok {
		return fmt.Errorf("error %d: %w", code, err)
	}
	if errors.Is(err, context.Canceled) {
		return cli.NewExitError("interrupted", 130)
	}
	return err
}
