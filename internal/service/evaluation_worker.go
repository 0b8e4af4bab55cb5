package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrWorkerSaturated indicates the background queue cannot accept more work
// right now.
var ErrWorkerSaturated = errors.New("background worker queue is full")

// Task is one unit of detached background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// BackgroundWorker executes tasks on a single consumer loop fed by a
// buffered channel. Submission is non-blocking: a full queue is reported to
// the caller instead of stalling a request handler. The worker is owned by
// main and passed to the services that schedule work on it.
type BackgroundWorker struct {
	tasks  chan Task
	logger zerolog.Logger
}

// NewBackgroundWorker builds a worker with the given queue capacity.
func NewBackgroundWorker(queueSize int, logger zerolog.Logger) *BackgroundWorker {
	if queueSize <= 0 {
		queueSize = 64
	}

	return &BackgroundWorker{
		tasks:  make(chan Task, queueSize),
		logger: logger.With().Str("component", "background_worker").Logger(),
	}
}

// Submit enqueues a task. It never blocks; when the queue is full the task
// is rejected and the caller decides how to surface that.
func (w *BackgroundWorker) Submit(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("task %q has no run function", task.Name)
	}

	select {
	case w.tasks <- task:
		return nil
	default:
		return ErrWorkerSaturated
	}
}

// Run consumes tasks until the context is cancelled. Panics inside a task
// are contained so one bad run cannot take down the loop.
func (w *BackgroundWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("background worker stopping")
			return
		case task := <-w.tasks:
			w.execute(ctx, task)
		}
	}
}

func (w *BackgroundWorker) execute(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Str("task", task.Name).Msg("background task panicked")
		}
	}()

	if err := task.Run(ctx); err != nil {
		w.logger.Error().Err(err).Str("task", task.Name).Msg("background task failed")
		return
	}

	w.logger.Debug().Str("task", task.Name).Msg("background task completed")
}
