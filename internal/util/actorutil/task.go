package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var errNilResult = errors.New("result is nil")

// SafeBackgroundTask runs a blocking call outside the actor and pipes the result back as a message.
// Callbacks run on the task goroutine and must not touch actor state.
type SafeBackgroundTask[T any] struct {
	root    *actor.RootContext
	fn      func(context.Context) (*T, error)
	timeout *time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		root: ctx.ActorSystem().Root,
		fn:   fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func(context.Context) *T) *SafeBackgroundTask[T] {
	return NewBackgroundTask(ctx, func(c context.Context) (*T, error) {
		return fn(c), nil
	})
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo starts the task and sends its value to pid. Errors go through Recover, or drop the result when none is set.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		if value, ok := t.Run(); ok {
			t.root.Send(pid, value)
		}
	}()
}

// Run executes the task on the calling goroutine.
func (t *SafeBackgroundTask[T]) Run() (T, bool) {
	runCtx := context.Background()
	cancel := func() {}
	if t.timeout != nil {
		runCtx, cancel = context.WithTimeout(runCtx, *t.timeout)
	}
	defer cancel()

	bg := io.Eval(func() (T, error) {
		var zero T
		a, err := t.fn(runCtx)
		if err != nil {
			return zero, err
		}
		if a == nil {
			return zero, errNilResult
		}
		return *a, nil
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.recover != nil {
			return t.recover(result.Error), true
		}
		var zero T
		return zero, false
	}
	return result.Value, true
}
