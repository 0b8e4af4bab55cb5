package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerExecutesSubmittedTasks(t *testing.T) {
	worker := NewBackgroundWorker(4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	done := make(chan struct{})
	require.NoError(t, worker.Submit(Task{
		Name: "test-task",
		Run: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was never executed")
	}
}

func TestWorkerRejectsWhenSaturated(t *testing.T) {
	// No consumer running, so the buffer fills up.
	worker := NewBackgroundWorker(1, testLogger())

	require.NoError(t, worker.Submit(Task{Name: "first", Run: func(ctx context.Context) error { return nil }}))
	err := worker.Submit(Task{Name: "second", Run: func(ctx context.Context) error { return nil }})
	require.ErrorIs(t, err, ErrWorkerSaturated)
}

func TestWorkerRejectsNilRun(t *testing.T) {
	worker := NewBackgroundWorker(1, testLogger())
	require.Error(t, worker.Submit(Task{Name: "empty"}))
}

func TestWorkerSurvivesPanickingTask(t *testing.T) {
	worker := NewBackgroundWorker(4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	require.NoError(t, worker.Submit(Task{
		Name: "panics",
		Run:  func(ctx context.Context) error { panic("boom") },
	}))

	done := make(chan struct{})
	require.NoError(t, worker.Submit(Task{
		Name: "after-panic",
		Run: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
}
