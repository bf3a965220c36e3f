package taskmanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitStatus(t *testing.T, tm *TaskManager, id uuid.UUID, want TaskStatus) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		var err error
		task, err = tm.GetTask(id)
		return err == nil && task.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func TestSubmit_CompletesWithResult(t *testing.T) {
	tm := New(Config{MaxTasks: 2}, zap.NewNop())
	id, err := tm.Submit("g1", "extract", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)

	task := waitStatus(t, tm, id, TaskStatusCompleted)
	assert.Equal(t, 42, task.Result)
	assert.Equal(t, "g1", task.Key)
	require.NoError(t, tm.Shutdown(context.Background()))
}

func TestSubmit_FailureAndPanic(t *testing.T) {
	tm := New(Config{}, zap.NewNop())

	id, err := tm.Submit("g1", "fail", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("model down")
	})
	require.NoError(t, err)
	task := waitStatus(t, tm, id, TaskStatusFailed)
	assert.Equal(t, "model down", task.Message)

	id, err = tm.Submit("g1", "panic", func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})
	require.NoError(t, err)
	task = waitStatus(t, tm, id, TaskStatusFailed)
	assert.Contains(t, task.Message, "boom")
}

func TestSubmit_SameKeyRunsInOrder(t *testing.T) {
	tm := New(Config{MaxTasks: 20}, zap.NewNop())

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		_, err := tm.Submit("g1", "extract", func(ctx context.Context) (interface{}, error) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, tm.Wait(context.Background(), "g1"))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestSubmit_MaxTasks(t *testing.T) {
	tm := New(Config{MaxTasks: 1}, zap.NewNop())
	release := make(chan struct{})

	_, err := tm.Submit("g1", "slow", func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	_, err = tm.Submit("g2", "second", func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrTooManyTasks)

	close(release)
	require.NoError(t, tm.Shutdown(context.Background()))
}

func TestCancelTask(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	started := make(chan struct{})

	id, err := tm.Submit("g1", "slow", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, tm.CancelTask(id))
	require.NoError(t, tm.Wait(context.Background(), "g1"))
	task, err := tm.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCancelled, task.Status)

	assert.ErrorIs(t, tm.CancelTask(id), ErrNotCancelable)
	assert.ErrorIs(t, tm.CancelTask(uuid.New()), ErrTaskNotFound)
}

func TestCancelKey(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		_, err := tm.Submit("g1", "slow", func(ctx context.Context) (interface{}, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, tm.CancelKey("g1"))
	assert.Equal(t, 0, tm.CancelKey("other"))
	require.NoError(t, tm.Wait(context.Background(), "g1"))
	close(release)
}

func TestWait_CoversRunningTaskAfterCancelKey(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})

	_, err := tm.Submit("g1", "first", func(ctx context.Context) (interface{}, error) {
		defer close(firstDone)
		close(started)
		<-release
		return nil, nil
	})
	require.NoError(t, err)
	<-started
	queued, err := tm.Submit("g1", "second", func(ctx context.Context) (interface{}, error) { return nil, nil })
	require.NoError(t, err)

	assert.Equal(t, 2, tm.CancelKey("g1"))
	waitStatus(t, tm, queued, TaskStatusCancelled)

	waited := make(chan error, 1)
	go func() { waited <- tm.Wait(context.Background(), "g1") }()

	select {
	case err := <-waited:
		t.Fatalf("Wait returned (%v) while the first task was still running", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-waited:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the first task finished")
	}
	select {
	case <-firstDone:
	default:
		t.Fatal("first task must be finished when Wait returns")
	}
}

func TestOnFinishedAndCleanup(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	finished := make(chan Task, 1)
	tm.OnFinished(func(task Task) { finished <- task })

	id, err := tm.Submit("g1", "quick", func(ctx context.Context) (interface{}, error) { return "ok", nil })
	require.NoError(t, err)

	select {
	case task := <-finished:
		assert.Equal(t, id, task.ID)
		assert.Equal(t, TaskStatusCompleted, task.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not called")
	}

	require.NoError(t, tm.Wait(context.Background(), "g1"))
	assert.Equal(t, 1, tm.CleanupTasks(0))
	_, err = tm.GetTask(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestShutdown(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	require.NoError(t, tm.Shutdown(context.Background()))
	require.NoError(t, tm.Shutdown(context.Background()), "second shutdown is safe")

	_, err := tm.Submit("g1", "late", func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestShutdown_TimeoutCancelsTasks(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	_, err := tm.Submit("g1", "stuck", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, tm.Shutdown(ctx))
	require.NoError(t, tm.Wait(context.Background(), "g1"))
}

func TestTaskTimeout(t *testing.T) {
	tm := New(Config{TaskTimeout: 10 * time.Millisecond}, zap.NewNop())
	id, err := tm.Submit("g1", "slow", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	waitStatus(t, tm, id, TaskStatusFailed)
}
