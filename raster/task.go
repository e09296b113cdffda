package raster

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is reported by tasks cancelled before they finished.
var ErrCancelled = errors.New("raster: cancelled")

// Func produces a bitmap.
type Func func(ctx context.Context) (*Bitmap, error)

// Task is a rasterization running in its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	bmp *Bitmap
	err error
}

// Start runs fn in a goroutine. onDone, when set, is called from that
// goroutine once fn returns; a cancelled task reports ErrCancelled and no
// bitmap whatever fn produced.
func Start(ctx context.Context, fn Func, onDone func(*Bitmap, error)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		bmp, err := fn(ctx)
		if ctx.Err() != nil {
			bmp, err = nil, ErrCancelled
		}
		t.mu.Lock()
		t.bmp, t.err = bmp, err
		t.mu.Unlock()
		close(t.done)
		if onDone != nil {
			onDone(bmp, err)
		}
	}()
	return t
}

// Cancel stops the task. It is safe to call more than once.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (*Bitmap, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bmp, t.err
}
