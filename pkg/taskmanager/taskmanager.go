package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTooManyTasks  = errors.New("too many active tasks")
	ErrShuttingDown  = errors.New("task manager is shutting down")
	ErrTaskNotFound  = errors.New("task not found")
	ErrNotCancelable = errors.New("task cannot be cancelled in its current state")
)

// TaskStatus - состояние задачи.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskFunc - работа, выполняемая в фоне.
type TaskFunc func(ctx context.Context) (interface{}, error)

// TaskCallback вызывается после завершения задачи.
type TaskCallback func(task Task)

// Task - снимок задачи.
type Task struct {
	ID        uuid.UUID
	Key       string
	Name      string
	Status    TaskStatus
	Message   string
	Result    interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

type taskEntry struct {
	Task
	cancel context.CancelFunc
	done   chan struct{}
}

// Config содержит настройки TaskManager.
type Config struct {
	MaxTasks int
	// TaskTimeout ограничивает время одной задачи; 0 - без ограничения.
	TaskTimeout time.Duration
}

// TaskManager выполняет задачи в фоне. Задачи с одинаковым ключом
// выполняются строго по очереди в порядке постановки.
type TaskManager struct {
	mu        sync.RWMutex
	tasks     map[uuid.UUID]*taskEntry
	tails     map[string]chan struct{} // последняя задача по ключу
	callbacks []TaskCallback
	maxTasks  int
	timeout   time.Duration
	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// New создает TaskManager.
func New(cfg Config, logger *zap.Logger) *TaskManager {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}
	return &TaskManager{
		tasks:    make(map[uuid.UUID]*taskEntry),
		tails:    make(map[string]chan struct{}),
		maxTasks: maxTasks,
		timeout:  cfg.TaskTimeout,
		closing:  make(chan struct{}),
		logger:   logger.Named("TaskManager"),
	}
}

// OnFinished регистрирует обработчик завершения любой задачи.
func (tm *TaskManager) OnFinished(cb TaskCallback) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.callbacks = append(tm.callbacks, cb)
}

// Submit ставит задачу в очередь ключа key и сразу возвращает ее ID.
// Контекст задачи не зависит от контекста вызывающего.
func (tm *TaskManager) Submit(key, name string, fn TaskFunc) (uuid.UUID, error) {
	select {
	case <-tm.closing:
		return uuid.Nil, ErrShuttingDown
	default:
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	active := 0
	for _, t := range tm.tasks {
		if !t.Status.finished() {
			active++
		}
	}
	if active >= tm.maxTasks {
		return uuid.Nil, fmt.Errorf("%w: limit %d", ErrTooManyTasks, tm.maxTasks)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if tm.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), tm.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	now := time.Now()
	entry := &taskEntry{
		Task: Task{
			ID:        uuid.New(),
			Key:       key,
			Name:      name,
			Status:    TaskStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	tm.tasks[entry.ID] = entry

	prev := tm.tails[key]
	tm.tails[key] = entry.done

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer cancel()

		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
			}
		}
		tm.run(ctx, entry, fn)
		// done закрывается только после предыдущей задачи ключа,
		// даже если эта была отменена раньше: Wait по хвосту покрывает всю очередь.
		if prev != nil {
			<-prev
		}
		close(entry.done)
		tm.releaseTail(key, entry.done)
	}()

	return entry.ID, nil
}

func (tm *TaskManager) releaseTail(key string, done chan struct{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.tails[key] == done {
		delete(tm.tails, key)
	}
}

func (tm *TaskManager) run(ctx context.Context, entry *taskEntry, fn TaskFunc) {
	log := tm.logger.With(zap.String("taskID", entry.ID.String()), zap.String("key", entry.Key), zap.String("task", entry.Name))

	if ctx.Err() != nil {
		tm.finish(entry, TaskStatusCancelled, "cancelled before start", nil)
		return
	}
	tm.setStatus(entry, TaskStatusRunning, "")

	result, err := tm.safeCall(ctx, fn)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		log.Info("Task context was cancelled")
		tm.finish(entry, TaskStatusCancelled, "cancelled", nil)
	case ctx.Err() != nil:
		log.Error("Task context error", zap.Error(ctx.Err()))
		tm.finish(entry, TaskStatusFailed, ctx.Err().Error(), nil)
	case err != nil:
		log.Error("Task failed", zap.Error(err))
		tm.finish(entry, TaskStatusFailed, err.Error(), nil)
	default:
		log.Debug("Task completed")
		tm.finish(entry, TaskStatusCompleted, "", result)
	}
}

func (tm *TaskManager) safeCall(ctx context.Context, fn TaskFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (tm *TaskManager) setStatus(entry *taskEntry, status TaskStatus, message string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if entry.Status.finished() {
		return
	}
	entry.Status = status
	entry.Message = message
	entry.UpdatedAt = time.Now()
}

func (tm *TaskManager) finish(entry *taskEntry, status TaskStatus, message string, result interface{}) {
	tm.mu.Lock()
	if entry.Status != TaskStatusCancelled {
		entry.Status = status
		entry.Message = message
		entry.Result = result
	}
	entry.UpdatedAt = time.Now()
	snapshot := entry.Task
	callbacks := append([]TaskCallback(nil), tm.callbacks...)
	tm.mu.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// GetTask возвращает снимок задачи.
func (tm *TaskManager) GetTask(id uuid.UUID) (Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	entry, ok := tm.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return entry.Task, nil
}

// CancelTask отменяет ожидающую или выполняющуюся задачу.
func (tm *TaskManager) CancelTask(id uuid.UUID) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	entry, ok := tm.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if entry.Status.finished() {
		return fmt.Errorf("%w: %s", ErrNotCancelable, entry.Status)
	}
	entry.cancel()
	entry.Status = TaskStatusCancelled
	entry.Message = "cancelled by request"
	entry.UpdatedAt = time.Now()
	return nil
}

// CancelKey отменяет все незавершенные задачи ключа.
func (tm *TaskManager) CancelKey(key string) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	n := 0
	for _, entry := range tm.tasks {
		if entry.Key == key && !entry.Status.finished() {
			entry.cancel()
			entry.Status = TaskStatusCancelled
			entry.Message = "cancelled by request"
			entry.UpdatedAt = time.Now()
			n++
		}
	}
	return n
}

// Wait ждет завершения всех задач ключа, поставленных до вызова.
func (tm *TaskManager) Wait(ctx context.Context, key string) error {
	tm.mu.RLock()
	tail := tm.tails[key]
	tm.mu.RUnlock()
	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CleanupTasks удаляет завершенные задачи старше age.
func (tm *TaskManager) CleanupTasks(age time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, entry := range tm.tasks {
		if entry.Status.finished() && now.Sub(entry.UpdatedAt) > age {
			select {
			case <-entry.done:
				delete(tm.tasks, id)
				removed++
			default:
			}
		}
	}
	return removed
}

// Shutdown перестает принимать задачи и ждет завершения текущих.
// По истечении ctx оставшиеся задачи отменяются.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.closeOnce.Do(func() { close(tm.closing) })

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		tm.mu.Lock()
		for _, entry := range tm.tasks {
			if !entry.Status.finished() {
				entry.cancel()
			}
		}
		tm.mu.Unlock()
		return fmt.Errorf("timed out waiting for tasks: %w", ctx.Err())
	}
}
