// Package workflow runs the conversion pipeline for claimed tasks. Each
// launched task gets its own goroutine that walks the four stages in order
// and records the terminal outcome on the task before exiting.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"blogcast/internal/config"
	"blogcast/internal/logging"
	"blogcast/internal/pipeline"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/stage"
)

// Manager launches and tracks background conversions.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	stages pipeline.Stages
	logger *slog.Logger

	slots chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	runCtx  context.Context
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager around the given stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, stages pipeline.Stages, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxConcurrent := cfg.Workflow.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		stages: stages,
		logger: logging.NewComponentLogger(logger, "workflow"),
		slots:  make(chan struct{}, maxConcurrent),
	}
}

// Start prepares the manager for launching conversions.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	m.runCtx, m.cancel = context.WithCancel(ctx)
	m.running = true
	return nil
}

// Stop cancels in-flight conversions and waits for their goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Launch claims a pending task and starts its conversion in the background.
// The caller gets no handle on the result; progress is observed through the
// task record. Launching an already claimed or unknown task is an error.
func (m *Manager) Launch(taskID string) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return errors.New("workflow not running")
	}
	ctx := m.runCtx
	m.mu.Unlock()

	claimed, err := m.store.ClaimPending(ctx, taskID)
	if err != nil {
		return fmt.Errorf("claim task: %w", err)
	}
	if !claimed {
		return fmt.Errorf("task %s is not pending", taskID)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			m.recordFailure(taskID, services.Wrap(services.ErrTransient, "workflow", "launch", "shutdown before start", ctx.Err()))
			return
		}
		defer func() { <-m.slots }()
		m.run(ctx, taskID)
	}()
	return nil
}

// run drives one task through all stages and records the terminal state.
func (m *Manager) run(ctx context.Context, taskID string) {
	log := m.logger.With(logging.String(logging.FieldTaskID, taskID))

	task, err := m.store.GetByID(ctx, taskID)
	if err != nil {
		m.recordFailure(taskID, fmt.Errorf("load task: %w", err))
		return
	}
	if task == nil {
		m.setLastError(fmt.Errorf("task %s vanished after claim", taskID))
		log.Error("task vanished after claim")
		return
	}

	log.Info("conversion started", logging.String("url", task.URL))
	start := time.Now()

	for _, handler := range m.stages.Ordered() {
		if err := m.runStage(ctx, handler, task); err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				m.recordFailure(taskID, services.Wrap(services.ErrTransient, "workflow", "run", "interrupted by shutdown", err))
				return
			}
			m.recordFailure(taskID, err)
			return
		}
	}

	if err := m.store.MarkCompleted(ctx, taskID); err != nil {
		m.setLastError(fmt.Errorf("mark completed: %w", err))
		log.Error("failed to record completion", logging.Error(err))
		return
	}
	log.Info("conversion completed", logging.Duration("elapsed", time.Since(start)))
}

// runStage executes one handler under the per-stage timeout, converting
// panics into ordinary errors so they never escape the goroutine.
func (m *Manager) runStage(ctx context.Context, handler stage.Handler, task *queue.Task) (err error) {
	stageCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.Workflow.StageTimeoutSeconds)*time.Second)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panic: %v\n%s", r, debug.Stack())
		}
	}()

	if err := handler.Prepare(stageCtx, task); err != nil {
		return fmt.Errorf("prepare stage: %w", err)
	}
	if err := handler.Execute(stageCtx, task); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && stageCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("stage timed out after %ds: %w", m.cfg.Workflow.StageTimeoutSeconds, err)
		}
		return err
	}
	return nil
}

// recordFailure marks the task failed with the error detail. The store
// write uses a fresh context so terminal state is still recorded when the
// run context is already cancelled.
func (m *Manager) recordFailure(taskID string, cause error) {
	m.setLastError(cause)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := services.Message(cause)
	if message == "" {
		message = cause.Error()
	}
	if err := m.store.MarkFailed(ctx, taskID, message); err != nil {
		m.logger.Error("failed to record task failure",
			logging.String(logging.FieldTaskID, taskID),
			logging.Error(err),
		)
		return
	}
	m.logger.Error("conversion failed",
		logging.String(logging.FieldTaskID, taskID),
		logging.Error(cause),
	)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// LastError reports the most recent conversion error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Running reports whether the manager accepts launches.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Health reports the readiness of every stage handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	handlers := m.stages.Ordered()
	health := make([]stage.Health, 0, len(handlers))
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		health = append(health, handler.HealthCheck(ctx))
	}
	return health
}
