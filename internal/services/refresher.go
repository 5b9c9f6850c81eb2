package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Loader reloads the default dataset
type Loader interface {
	LoadDefault(ctx context.Context) (*StoredDataset, error)
}

// Refresher re-fetches the default source on a cron schedule
type Refresher struct {
	cron     *cron.Cron
	loader   Loader
	schedule string
	timeout  time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	base context.Context // Run's context; refreshes are cancelled with it
}

// NewRefresher registers the refresh job. schedule uses the standard
// five-field cron syntax or descriptors such as "@hourly".
func NewRefresher(loader Loader, schedule string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "source_refresher"))

	cl := cronLogger{logger: logger}
	r := &Refresher{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		loader:   loader,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
		base:     context.Background(),
	}

	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("register refresh job: %w", err)
	}
	return r, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running refresh to finish. A refresh in flight is cancelled with ctx.
func (r *Refresher) Run(ctx context.Context) error {
	r.mu.Lock()
	r.base = ctx
	r.mu.Unlock()

	r.cron.Start()
	r.logger.Info("refresher started", slog.String("schedule", r.schedule))

	<-ctx.Done()
	stopped := r.cron.Stop()
	<-stopped.Done()
	r.logger.Info("refresher stopped")
	return nil
}

// Next returns the next scheduled refresh time
func (r *Refresher) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (r *Refresher) refresh() {
	r.mu.Lock()
	ctx := r.base
	r.mu.Unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()
	entry, err := r.loader.LoadDefault(ctx)
	if err != nil {
		r.logger.Error("scheduled refresh failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(started)))
		return
	}
	r.logger.Info("scheduled refresh complete",
		slog.String("dataset_id", entry.ID),
		slog.Int("valid_rows", entry.Meta.ValidRows),
		slog.Duration("elapsed", time.Since(started)))
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
