package cmd

import (
	"context"

	adapterbrowser "tabspaces/internal/adapters/browser"
	adapterstorage "tabspaces/internal/adapters/storage"
	"tabspaces/internal/commands"
	"tabspaces/internal/config"
	"tabspaces/internal/directory"
	"tabspaces/internal/events"
	"tabspaces/internal/reconcile"
	"tabspaces/internal/restore"
	"tabspaces/internal/scheduler"
	"tabspaces/internal/snapshot"
)

// Container holds all dependencies for the application
type Container struct {
	Store      *adapterstorage.Store
	Bridge     *adapterbrowser.Bridge
	Directory  *directory.Directory
	Reconciler *reconcile.Reconciler
	Codec      *snapshot.Codec
	Scheduler  *scheduler.Scheduler
	Engine     *restore.Engine
	Events     *events.Bridge
	Registry   *commands.Registry
	Timings    config.Timings
}

// NewContainer creates a new Container with all dependencies wired. The
// scheduling guard is created here and injected into the scheduler, the
// restore engine, and the event bridge; nothing reaches it ambiently.
func NewContainer(dbPath, bridgeAddr string, timings config.Timings) (*Container, error) {
	store, err := adapterstorage.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	bridge := adapterbrowser.NewBridge(bridgeAddr)
	dir := directory.New(store)
	rec := reconcile.New(bridge, dir)
	codec := snapshot.New(bridge, dir)

	guard := scheduler.NewState()
	sched := scheduler.New(guard, func(ctx context.Context) error {
		return codec.Persist(ctx, store)
	}, timings.Debounce, timings.Heartbeat)

	engine := restore.New(bridge, dir, rec, store, sched, timings.RestoreDelay, timings.StartupPause)
	evBridge := events.New(guard, sched, rec, dir, bridge)
	registry := commands.NewRegistry(dir, rec, bridge)

	bridge.SetEventHandler(evBridge.Handle)
	bridge.SetCommandRegistry(registry)

	return &Container{
		Store:      store,
		Bridge:     bridge,
		Directory:  dir,
		Reconciler: rec,
		Codec:      codec,
		Scheduler:  sched,
		Engine:     engine,
		Events:     evBridge,
		Registry:   registry,
		Timings:    timings,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
