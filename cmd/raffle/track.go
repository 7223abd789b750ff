package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"tierraffle/internal/blockchain"
	"tierraffle/internal/logger"
	"tierraffle/internal/metrics"
	"tierraffle/internal/tracker"
)

var trackCommand = cli.Command{
	Name:  "track",
	Usage: "feed chain entropy and settle closed tiers until interrupted",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "keeper", Usage: "address reported as the settlement caller"},
	},
	Action: func(c *cli.Context) error {
		keeper, err := optionalAddress("keeper", c.String("keeper"))
		if err != nil {
			return err
		}
		return track(keeper)
	},
}

func track(keeper ton.AccountID) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raffleMetrics := metrics.Raffle()
	env.engine.SetMetrics(raffleMetrics)

	trackerInstance, err := tracker.NewTracker(env.engine, env.history, env.feeder, tracker.Options{
		Keeper:   keeper,
		Interval: env.configuration.TrackInterval,
	})
	if err != nil {
		return err
	}
	trackerInstance.SetMetrics(raffleMetrics)

	if err := trackerInstance.VerifyRaffleAccounts(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)

	var server *http.Server
	if address := env.configuration.MetricsAddress; address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logger.Info("track: serving metrics", zap.String("address", address))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	done := make(chan error, 1)
	go func() {
		logger.Info("track: started",
			zap.Duration("interval", env.configuration.TrackInterval),
			zap.Bool("keeper", !blockchain.IsNone(keeper)),
		)
		done <- trackerInstance.Run(ctx)
	}()

	stopped := false
	select {
	case err = <-errCh:
		logger.Error("track: stopping after error", zap.Error(err))
	case <-waitForInterrupt():
		logger.Info("track: interrupt received")
	case err = <-done:
		stopped = true
	}
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if !stopped {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logger.Warn("track: tracker did not stop in time")
		}
	}
	return err
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
