package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilTaskResult = errors.New("task result is nil")

// SafeBackgroundTask runs fn as an IO effect, turning panics and timeouts
// into errors that are either recovered into a value or reported.
type SafeBackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func() (*T, error)
	timeout *time.Duration
	onError func(error)
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func() *T) *SafeBackgroundTask[T] {
	return NewBackgroundTask(ctx, func() (*T, error) {
		return fn(), nil
	})
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo sends the task value, or the recovered value, to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	if value, ok := t.Run(); ok {
		t.ctx.Send(pid, value)
	}
}

// Run evaluates the task. It reports false when the task failed and no
// recover function was set.
func (t *SafeBackgroundTask[T]) Run() (T, bool) {
	bg := io.Map(io.Eval(t.fn), func(a *T) T {
		if a == nil {
			panic(ErrNilTaskResult)
		}
		return *a
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error == nil {
		return result.Value, true
	}
	if t.recover != nil {
		return t.recover(result.Error), true
	}
	if t.onError != nil {
		t.onError(result.Error)
	}
	var zero T
	return zero, false
}
