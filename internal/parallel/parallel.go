package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/iver-wharf/temperatures/internal/errutil"
)

// Func is a function declaration used in parallel runs.
type Func func(ctx context.Context) error

type task struct {
	name string
	f    Func
}

// Group is a list of functions to run in parallel.
type Group []task

// AddFunc adds a function to the group to later be used in the parallel call.
// The name is prepended to the error message, if any.
func (g *Group) AddFunc(name string, f Func) {
	*g = append(*g, task{name, f})
}

// RunCancelEarly will run all functions in parallel in separate goroutines, and
// will cancel them all as soon as one of them returns an error. The resulting
// error is the error from the first function that errors.
func (g *Group) RunCancelEarly(ctx context.Context) error {
	var gr groupRun
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gr.wg.Add(len(*g))
	for _, t := range *g {
		go gr.runFunc(ctx, cancel, t)
	}
	gr.wg.Wait()
	return gr.errs.Unwrap()
}

// RunAll will run all functions in parallel in separate goroutines and wait
// for all of them to finish, regardless of errors. All errors are returned,
// in the order they occurred.
func (g *Group) RunAll(ctx context.Context) errutil.Slice {
	var gr groupRun
	gr.wg.Add(len(*g))
	for _, t := range *g {
		go gr.runFunc(ctx, nil, t)
	}
	gr.wg.Wait()
	return gr.errs
}

type groupRun struct {
	mutex sync.Mutex
	errs  errutil.Slice
	wg    sync.WaitGroup
}

func (gr *groupRun) runFunc(ctx context.Context, cancel context.CancelFunc, t task) {
	defer gr.wg.Done()
	err := t.f(ctx)
	if err == nil {
		return
	}
	gr.mutex.Lock()
	gr.errs.Add(fmt.Errorf("%s: %w", t.name, err))
	gr.mutex.Unlock()
	if cancel != nil {
		cancel()
	}
}
