package snmp

import (
	"context"
	"sync"
	"time"
)

// TargetRequest is one unit of multi-target work.
type TargetRequest struct {
	Target string
	OID    string
	Opts   []ReqOption
}

// TargetResult is the outcome for one target. Results align positionally
// with the submitted requests; a failure on one target never alters
// another's result.
type TargetResult struct {
	Target   string
	Varbinds []Variable
	Err      error
	Elapsed  time.Duration
}

// DispatcherOptions configures the multi-target dispatcher.
type DispatcherOptions struct {
	// MaxConcurrent bounds in-flight per-target requests.
	MaxConcurrent int
}

// NewDispatcherOptions creates DispatcherOptions with default values.
func NewDispatcherOptions() *DispatcherOptions {
	return &DispatcherOptions{
		MaxConcurrent: 32,
	}
}

// DispatcherOption is a functional option for configuring the dispatcher.
type DispatcherOption func(*DispatcherOptions)

// WithMaxConcurrent bounds concurrent per-target requests.
func WithMaxConcurrent(n int) DispatcherOption {
	return func(o *DispatcherOptions) {
		o.MaxConcurrent = n
	}
}

// Dispatcher fans requests out across targets concurrently with failure
// isolation.
type Dispatcher struct {
	engine *Engine
	walker *Walker
	opts   *DispatcherOptions
}

// NewDispatcher creates a dispatcher over an engine.
func NewDispatcher(engine *Engine, opts ...DispatcherOption) *Dispatcher {
	options := NewDispatcherOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Dispatcher{
		engine: engine,
		walker: NewWalker(engine),
		opts:   options,
	}
}

// run fans out one operation per request under the concurrency bound.
func (d *Dispatcher) run(ctx context.Context, reqs []TargetRequest, op func(context.Context, TargetRequest) ([]Variable, error)) []TargetResult {
	results := make([]TargetResult, len(reqs))
	sem := make(chan struct{}, d.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req TargetRequest) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			vars, err := op(ctx, req)
			results[i] = TargetResult{
				Target:   req.Target,
				Varbinds: vars,
				Err:      err,
				Elapsed:  time.Since(start),
			}
		}(i, req)
	}

	wg.Wait()
	return results
}

// MultiGet performs a GET against each target.
func (d *Dispatcher) MultiGet(ctx context.Context, reqs []TargetRequest) []TargetResult {
	return d.run(ctx, reqs, func(ctx context.Context, req TargetRequest) ([]Variable, error) {
		v, err := d.engine.Get(ctx, req.Target, req.OID, req.Opts...)
		if err != nil {
			return nil, err
		}
		return []Variable{v}, nil
	})
}

// MultiGetBulk performs a GETBULK against each target.
func (d *Dispatcher) MultiGetBulk(ctx context.Context, reqs []TargetRequest) []TargetResult {
	return d.run(ctx, reqs, func(ctx context.Context, req TargetRequest) ([]Variable, error) {
		return d.engine.GetBulk(ctx, req.Target, req.OID, req.Opts...)
	})
}

// MultiWalk walks the subtree on each target.
func (d *Dispatcher) MultiWalk(ctx context.Context, reqs []TargetRequest) []TargetResult {
	return d.run(ctx, reqs, func(ctx context.Context, req TargetRequest) ([]Variable, error) {
		return d.walker.Walk(ctx, req.Target, req.OID, req.Opts...)
	})
}
