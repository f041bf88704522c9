package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tabspaces/internal/logging"
)

// ServeCmd runs the workspace service: the websocket bridge, the snapshot
// heartbeat, and the one-shot startup restore.
type ServeCmd struct{}

// Run executes the service until interrupted
func (s *ServeCmd) Run(cli *CLI) error {
	c := cli.Container
	logging.Logger.Info("starting tabspaces service",
		"bridge_addr", cli.BridgeAddr,
		"db_path", cli.DBPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Bridge.Run(gctx)
	})
	g.Go(func() error {
		return c.Scheduler.RunHeartbeat(gctx)
	})
	g.Go(func() error {
		// A failed restore leaves the live session as-is; the service keeps
		// running and the next snapshot save overwrites the stale record
		if err := c.Engine.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Logger.Error("startup restore failed", "error", err)
		}
		return nil
	})

	err := g.Wait()

	// Final save on the way out, same as the suspend path
	if c.Bridge.Connected() {
		flushCtx, cancel := context.WithTimeout(context.Background(), c.Timings.FinalSaveLag)
		if ferr := c.Scheduler.Flush(flushCtx); ferr != nil {
			logging.Logger.Warn("final snapshot save failed", "error", ferr)
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Logger.Info("tabspaces service stopped")
	return nil
}
