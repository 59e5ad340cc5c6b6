package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaugehq/bskyagent/internal/coordinator"
	"github.com/gaugehq/bskyagent/internal/feed"
	"github.com/gaugehq/bskyagent/internal/queue"
)

// runCmd polls the notification feed and drains the queue, either once
// or on an interval. A lock file under the data directory keeps a
// second bskyagent process from sharing the collections.
func runCmd(args []string) error {
	fs, configPath := newFlagSet("run")
	interval := fs.Duration("interval", time.Minute, "delay between poll cycles")
	once := fs.Bool("once", false, "run a single cycle and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	lock, err := queue.AcquireLock(a.cfg.Bot.DataDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	adapter, err := a.feedAdapter()
	if err != nil {
		return err
	}
	responder, err := a.responder(adapter)
	if err != nil {
		return err
	}

	coord := coordinator.New(adapter, responder, a.queue, a.store, a.coordinatorConfig(), a.log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	anomalies, err := coord.Reconcile(ctx)
	if err != nil {
		return err
	}
	if anomalies > 0 {
		a.log.WithField("anomalies", anomalies).Info("startup reconciliation resolved crash residue")
	}

	for {
		stats, err := coord.RunCycle(ctx)
		switch {
		case err == nil:
			a.log.WithField("cycle", stats.CycleID).Debug("cycle finished")
		case errors.Is(err, context.Canceled):
			a.log.Info("shutting down")
			return nil
		case feed.IsAuthError(err):
			// Bad credentials will not fix themselves; stop instead of
			// hammering the PDS.
			return err
		default:
			a.log.WithError(err).Error("cycle failed")
		}

		if *once {
			return err
		}

		select {
		case <-ctx.Done():
			a.log.Info("shutting down")
			return nil
		case <-time.After(*interval):
		}
	}
}
