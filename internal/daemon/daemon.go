package daemon

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"framed/internal/catalog"
	"framed/internal/cleanup"
	"framed/internal/config"
	"framed/internal/frames"
	"framed/internal/logging"
	"framed/internal/pregen"
	"framed/internal/preflight"
	"framed/internal/recovery"
	"framed/internal/services"
	"framed/internal/store"
)

// LockFileName is the single-instance lock inside the state directory.
const LockFileName = "framed.lock"

// Daemon owns the long-running frame production pipeline: the store, the
// generator, the pregeneration queue, and the cleanup scheduler.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	lock      *flock.Flock
	store     *store.Store
	stores    *frames.Stores
	catalog   *catalog.Catalog
	generator *frames.Service
	cleaner   *cleanup.Scheduler

	queue  *pregen.Queue[frames.Item]
	report recovery.Report
}

// Stats is a point-in-time snapshot for status output.
type Stats struct {
	Ready     int
	InFlight  int
	Scanned   int
	Recovered int
}

// New assembles a daemon. It acquires the single-instance lock and opens all
// resources, but generation does not begin until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := preflight.Check(cfg); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "preflight", "", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "daemon", "lock",
			"failed to acquire instance lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "lock",
			"another instance is already running", nil)
	}

	st, err := store.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	cat, err := catalog.Load(cfg.Paths.CatalogPath)
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "catalog", "", err)
	}

	stores := frames.NewStores(st)
	generator, err := frames.NewService(cfg, cat, stores, logger)
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &Daemon{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "daemon"),
		lock:      lock,
		store:     st,
		stores:    stores,
		catalog:   cat,
		generator: generator,
		cleaner:   cleanup.NewScheduler(cfg, stores, logger),
	}, nil
}

// Start runs the startup scan, seeds the pregeneration queue with whatever
// survived the restart, and launches production and cleanup.
func (d *Daemon) Start(ctx context.Context) error {
	report, err := recovery.Scan(ctx, d.stores, d.generator.Paths(), d.logger)
	if err != nil {
		return err
	}
	d.report = report

	queue, err := pregen.New(d.generator.Produce, report.Seeds, pregen.Options{
		Length:     d.cfg.Pregen.Length,
		MaxPending: d.cfg.Pregen.MaxPending,
		MaxRetries: d.cfg.Pregen.MaxRetries,
	}, d.logger)
	if err != nil {
		return err
	}
	d.queue = queue

	d.queue.Start(ctx)
	d.cleaner.Start(ctx)
	d.logger.Info("daemon started",
		"episodes", d.catalog.Len(),
		"recovered", len(report.Seeds),
		"scanned", report.Scanned())
	return nil
}

// TakeFrame blocks until a pregenerated frame is ready and returns it. The
// returned id always has a complete answer record behind it.
func (d *Daemon) TakeFrame(ctx context.Context) (frames.Item, error) {
	return d.queue.Take(ctx)
}

// MarkServed stamps the served expiry onto a frame's records.
func (d *Daemon) MarkServed(ctx context.Context, id string) error {
	return d.generator.MarkServed(ctx, id)
}

// ImagePath returns the on-disk location for a frame id.
func (d *Daemon) ImagePath(id string) string {
	return d.generator.ImagePath(id)
}

// Stats reports queue and startup-scan numbers.
func (d *Daemon) Stats() Stats {
	stats := Stats{
		Scanned:   d.report.Scanned(),
		Recovered: len(d.report.Seeds),
	}
	if d.queue != nil {
		stats.Ready = d.queue.Ready()
		stats.InFlight = d.queue.InFlight()
	}
	return stats
}

// Stop halts production and cleanup, then releases all resources.
func (d *Daemon) Stop() {
	if d.queue != nil {
		d.queue.Stop()
	}
	d.cleaner.Stop()
	if err := d.store.Close(); err != nil {
		d.logger.Warn("failed to close state database", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.logger.Info("daemon stopped")
}
