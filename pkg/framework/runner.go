package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait when stop is requested twice.
var ErrForcedExit = errors.New("forced exit")

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to a Runnable, used in logs and errors.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs a group of Runnables sharing one context. The first
// failure cancels the whole group.
type Runner struct {
	Context context.Context

	cancel  context.CancelFunc
	running sync.WaitGroup
	forced  chan struct{}

	lock    sync.Mutex
	started int
	errs    AggregatedError
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{forced: make(chan struct{})}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the Runner on interrupt or SIGTERM. A second signal
// makes Wait return ErrForcedExit without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			glog.Infof("%v: stopping", sig)
			r.cancel()
		case <-r.Context.Done():
			signal.Stop(sigCh)
			return
		}
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.forced)
	}()
	return r
}

// Go starts Runnables on the Runner's context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	return r.GoWith(r.Context, runnables...)
}

// GoWith starts Runnables on ctx. A failure still cancels the Runner.
func (r *Runner) GoWith(ctx context.Context, runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := r.nameOf(runnable)
		r.running.Add(1)
		go r.run(ctx, name, runnable)
	}
	return r
}

// Wait blocks until every started Runnable returns. Cancellation is not
// an error; other failures are aggregated.
func (r *Runner) Wait() error {
	select {
	case <-r.done():
	case <-r.forced:
		return ErrForcedExit
	}
	r.cancel()
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

func (r *Runner) nameOf(runnable Runnable) string {
	r.lock.Lock()
	defer r.lock.Unlock()
	index := r.started
	r.started++
	if named, ok := runnable.(Named); ok {
		return named.Name()
	}
	return strconv.Itoa(index)
}

func (r *Runner) run(ctx context.Context, name string, runnable Runnable) {
	defer r.running.Done()
	glog.V(4).Infof("runner %s: started", name)
	err := runnable.Run(ctx)
	glog.V(4).Infof("runner %s: stopped", name)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	glog.Errorf("runner %s: %v", name, err)
	r.lock.Lock()
	r.errs.Add(fmt.Errorf("%s: %w", name, err))
	r.lock.Unlock()
	r.cancel()
}

func (r *Runner) done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		r.running.Wait()
		close(ch)
	}()
	return ch
}

// RunWithContextCancel runs fn which doesn't take a context. When ctx is
// done first, onCancel is expected to make fn return.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	result := make(chan error, 1)
	go func() { result <- fn() }()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-result
	return ctx.Err()
}

// RunWithContext is RunWithContextCancel without a cancel callback.
func RunWithContext(ctx context.Context, fn func() error) error {
	return RunWithContextCancel(ctx, nil, fn)
}

// RunWithContextCloser closes closer exactly once, on cancel or after fn
// returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() {
		once.Do(func() {
			if err := closer.Close(); err != nil {
				glog.V(2).Infof("close: %v", err)
			}
		})
	}
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
