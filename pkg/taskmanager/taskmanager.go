package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TaskStatus describes the lifecycle of a background task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskFunc is the unit of work executed by the manager. The context it
// receives is independent of the submitting request's context, so a detached
// client does not cancel the pipeline.
type TaskFunc func(ctx context.Context) error

// Task is the tracked state of one submitted unit of work.
type Task struct {
	ID        uuid.UUID
	OwnerID   string
	Status    TaskStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
	cancel    context.CancelFunc
}

// Manager runs submit-and-detach tasks and keeps their status queryable.
type Manager struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*Task
	maxTasks int
	wg       sync.WaitGroup
	closing  chan struct{}
}

// Config holds Manager settings.
type Config struct {
	MaxTasks int
}

// New creates a Manager. MaxTasks bounds the number of concurrently
// pending/running tasks; values <= 0 fall back to 10.
func New(cfg Config) *Manager {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}
	return &Manager{
		tasks:    make(map[uuid.UUID]*Task),
		maxTasks: maxTasks,
		closing:  make(chan struct{}),
	}
}

// Submit registers a task for ownerID and starts it in its own goroutine.
// The returned ID can be used to poll status or cancel.
func (m *Manager) Submit(ctx context.Context, ownerID string, fn TaskFunc) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closing:
		return uuid.UUID{}, errors.New("task manager is shutting down")
	default:
	}

	active := 0
	for _, t := range m.tasks {
		if t.Status == TaskStatusPending || t.Status == TaskStatusRunning {
			active++
		}
	}
	if active >= m.maxTasks {
		return uuid.UUID{}, errors.New("maximum number of active tasks exceeded")
	}

	taskID := uuid.New()

	// The task outlives the request: give it a fresh root context carrying
	// only the request's logger.
	baseCtx, cancel := context.WithCancel(context.Background())
	taskCtx := log.Ctx(ctx).WithContext(baseCtx)

	task := &Task{
		ID:        taskID,
		OwnerID:   ownerID,
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		cancel:    cancel,
	}
	m.tasks[taskID] = task

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(taskCtx, task, fn)
	}()

	return taskID, nil
}

func (m *Manager) run(ctx context.Context, task *Task, fn TaskFunc) {
	m.setStatus(task, TaskStatusRunning, "task started")

	err := fn(ctx)

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		log.Ctx(ctx).Info().Str("taskID", task.ID.String()).Msg("task context cancelled")
		m.setStatus(task, TaskStatusCancelled, "task cancelled")
		return
	}

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("taskID", task.ID.String()).Msg("task finished with error")
		m.setStatus(task, TaskStatusFailed, fmt.Sprintf("error: %v", err))
		return
	}
	m.setStatus(task, TaskStatusCompleted, "task completed")
}

func (m *Manager) setStatus(task *Task, status TaskStatus, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now()
}

// GetTask returns the tracked state for taskID.
func (m *Manager) GetTask(taskID uuid.UUID) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

// CancelTask cancels a pending or running task.
func (m *Manager) CancelTask(taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if task.Status != TaskStatusPending && task.Status != TaskStatusRunning {
		return fmt.Errorf("cannot cancel task in status %s", task.Status)
	}
	if task.cancel != nil {
		task.cancel()
	}
	task.Status = TaskStatusCancelled
	task.Message = "task cancelled by caller"
	task.UpdatedAt = time.Now()
	return nil
}

// CleanupTasks drops finished tasks older than age.
func (m *Manager) CleanupTasks(age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, task := range m.tasks {
		done := task.Status == TaskStatusCompleted || task.Status == TaskStatusFailed || task.Status == TaskStatusCancelled
		if done && now.Sub(task.UpdatedAt) > age {
			delete(m.tasks, id)
		}
	}
}

// Shutdown stops accepting tasks and waits for running ones until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.closing)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for tasks to finish")
	}
}

// Close cancels all unfinished tasks and waits for their goroutines.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, task := range m.tasks {
		if task.Status == TaskStatusPending || task.Status == TaskStatusRunning {
			if task.cancel != nil {
				task.cancel()
			}
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}
