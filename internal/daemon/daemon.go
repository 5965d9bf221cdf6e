// Package daemon runs the background conversion service: it enforces
// single-instance execution, owns the workflow manager, and serves the
// HTTP status API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"blogcast/internal/api"
	"blogcast/internal/config"
	"blogcast/internal/deps"
	"blogcast/internal/logging"
	"blogcast/internal/queue"
	"blogcast/internal/staging"
	"blogcast/internal/workflow"
)

// Stale staging directories are swept while the daemon runs; the max age sits
// well above any per-stage timeout so in-flight scratch dirs survive.
const (
	stagingSweepInterval = time.Hour
	stagingMaxAge        = 24 * time.Hour
)

type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	server *apiServer

	sweepInterval time.Duration
	sweepMaxAge   time.Duration

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.LogDir, "blogcast.lock")
	d := &Daemon{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		store:         store,
		workflow:      wf,
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
		sweepInterval: stagingSweepInterval,
		sweepMaxAge:   stagingMaxAge,
	}
	d.server = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start acquires the instance lock, fails over interrupted tasks, and
// launches the workflow manager and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another blogcast daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	interrupted, err := d.store.FailInterrupted(d.ctx)
	if err != nil {
		d.releaseStart()
		return fmt.Errorf("fail interrupted tasks: %w", err)
	}
	if interrupted > 0 {
		d.logger.Info("failed interrupted tasks from previous run", logging.Int64("count", interrupted))
	}
	staging.CleanOrphaned(d.cfg.StagingDir(), nil, d.logger)

	if err := d.workflow.Start(d.ctx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start workflow: %w", err)
	}

	if err := d.server.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.releaseStart()
		return err
	}

	d.wg.Add(1)
	go d.sweepStaging(d.ctx)

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// sweepStaging periodically removes scratch directories that outlived any
// plausible conversion, catching dirs left by runs killed mid-stage.
func (d *Daemon) sweepStaging(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staging.CleanStale(d.cfg.StagingDir(), d.sweepMaxAge, d.logger)
		}
	}
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the HTTP API listen address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Submit validates the URL, creates a pending task, and launches its
// conversion. It returns as soon as the task is claimed.
func (d *Daemon) Submit(ctx context.Context, rawURL string) (*queue.Task, error) {
	url, err := api.ValidateSubmissionURL(rawURL)
	if err != nil {
		return nil, err
	}
	task, err := d.store.Create(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := d.workflow.Launch(task.ID); err != nil {
		return nil, err
	}
	return task, nil
}

// Status aggregates daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}

	var lastError string
	if err := d.workflow.LastError(); err != nil {
		lastError = err.Error()
	}
	health := d.workflow.Health(ctx)
	stageHealth := make([]api.StageHealth, 0, len(health))
	for _, h := range health {
		stageHealth = append(stageHealth, api.StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}

	statuses := deps.Check(d.cfg)
	dependencies := make([]api.DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:      status.Name,
			Command:   status.Command,
			Optional:  status.Optional,
			Available: status.Available,
			Detail:    status.Detail,
		})
	}

	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Workflow: api.WorkflowStatus{
			Running:     d.workflow.Running(),
			QueueStats:  counts,
			LastError:   lastError,
			StageHealth: stageHealth,
		},
		Dependencies: dependencies,
	}
}
