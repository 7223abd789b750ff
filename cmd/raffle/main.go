package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"tierraffle/internal/config"
	"tierraffle/internal/entropy"
	"tierraffle/internal/logger"
	"tierraffle/internal/raffle"
	"tierraffle/internal/storage"
)

// runtime holds what every command needs. It is built in Before and torn
// down in After.
type runtime struct {
	configuration *config.Configuration
	store         *storage.SqliteStorage
	history       *entropy.History
	feeder        entropy.Feeder
	engine        *raffle.Engine
}

var env runtime

func main() {
	app := cli.NewApp()
	app.Name = "raffle"
	app.Usage = "tiered recurring token raffle"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "env",
			Value: ".env",
			Usage: "environment file to load before the process environment",
		},
	}
	app.Before = setup
	app.After = teardown
	app.Commands = []cli.Command{
		initCommand,
		fundCommand,
		buyCommand,
		distributeCommand,
		statusCommand,
		balanceCommand,
		historyCommand,
		trackCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("raffle: command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	configuration, err := config.Load(c.GlobalString("env"))
	if err != nil {
		return err
	}
	if err := logger.Initialize(configuration.Logger); err != nil {
		return err
	}

	store, err := storage.NewSqliteStorage(configuration.DatabasePath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", configuration.DatabasePath, err)
	}

	feeder, err := newFeeder(configuration)
	if err != nil {
		_ = store.Close()
		return err
	}

	history := entropy.NewHistory(entropy.DefaultHistorySize)
	engine, err := raffle.NewEngine(store, history, raffle.Options{
		Program:    configuration.ProgramID,
		Authority:  configuration.Authority,
		OpsWallet:  configuration.OpsWallet,
		BurnWallet: configuration.BurnWallet,
	})
	if err != nil {
		_ = store.Close()
		return err
	}

	env = runtime{
		configuration: configuration,
		store:         store,
		history:       history,
		feeder:        feeder,
		engine:        engine,
	}
	return nil
}

func teardown(_ *cli.Context) error {
	defer logger.Sync()
	if env.store == nil {
		return nil
	}
	return env.store.Close()
}

func newFeeder(configuration *config.Configuration) (entropy.Feeder, error) {
	switch configuration.EntropyProvider {
	case config.EntropyProviderLite:
		return entropy.NewLiteFeeder()
	case config.EntropyProviderTonapi:
		return entropy.NewTonapiFeeder(configuration.TonapiToken)
	default:
		return entropy.NewLocalFeeder(uint64(time.Now().Unix())), nil
	}
}
