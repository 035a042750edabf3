// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WalkOptions configures subtree traversal.
type WalkOptions struct {
	// MaxEntries bounds the number of varbinds a walk may return.
	MaxEntries int
	// InitialRepetitions seeds the adaptive bulk controller.
	InitialRepetitions int
	// BulkCeiling caps the adaptive max-repetitions.
	BulkCeiling int
	// TargetLatency is the per-call latency budget used by Benchmark.
	TargetLatency time.Duration
}

// NewWalkOptions creates WalkOptions with default values.
func NewWalkOptions() *WalkOptions {
	return &WalkOptions{
		MaxEntries:         10000,
		InitialRepetitions: DefaultMaxRepetitions,
		BulkCeiling:        50,
		TargetLatency:      500 * time.Millisecond,
	}
}

// WalkOption is a functional option for configuring a walker.
type WalkOption func(*WalkOptions)

// WithMaxEntries bounds the walk size.
func WithMaxEntries(n int) WalkOption {
	return func(o *WalkOptions) {
		o.MaxEntries = n
	}
}

// WithInitialRepetitions seeds the bulk controller.
func WithInitialRepetitions(n int) WalkOption {
	return func(o *WalkOptions) {
		o.InitialRepetitions = n
	}
}

// WithBulkCeiling caps the adaptive max-repetitions.
func WithBulkCeiling(n int) WalkOption {
	return func(o *WalkOptions) {
		o.BulkCeiling = n
	}
}

// WithTargetLatency sets the Benchmark latency budget.
func WithTargetLatency(d time.Duration) WalkOption {
	return func(o *WalkOptions) {
		o.TargetLatency = d
	}
}

// bulkTuner is the adaptive max-repetitions controller: double on
// success, halve on tooBig, clamp to [1, ceiling].
type bulkTuner struct {
	current int
	ceiling int
}

func newBulkTuner(initial, ceiling int) *bulkTuner {
	if ceiling < 1 {
		ceiling = 1
	}
	if initial < 1 {
		initial = 1
	}
	if initial > ceiling {
		initial = ceiling
	}
	return &bulkTuner{current: initial, ceiling: ceiling}
}

func (t *bulkTuner) onSuccess() {
	t.current *= 2
	if t.current > t.ceiling {
		t.current = t.ceiling
	}
}

func (t *bulkTuner) onTooBig() {
	t.current /= 2
	if t.current < 1 {
		t.current = 1
	}
}

// Walker orchestrates iterative subtree traversal over an engine.
type Walker struct {
	engine *Engine
	opts   *WalkOptions
}

// NewWalker creates a walker bound to an engine.
func NewWalker(engine *Engine, opts ...WalkOption) *Walker {
	options := NewWalkOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Walker{engine: engine, opts: options}
}

// Walk traverses the subtree under root and returns every varbind in it,
// in ascending OID order.
func (w *Walker) Walk(ctx context.Context, target, root string, opts ...ReqOption) ([]Variable, error) {
	var results []Variable
	err := w.WalkFunc(ctx, target, root, func(v Variable) error {
		results = append(results, v)
		return nil
	}, opts...)
	return results, err
}

// WalkFunc traverses the subtree under root, calling fn for each varbind.
// An error from fn terminates the walk.
func (w *Walker) WalkFunc(ctx context.Context, target, root string, fn func(Variable) error, opts ...ReqOption) error {
	ro := w.engine.resolve(opts)
	rootOID, err := ParseOIDWith(root, w.engine.mib)
	if err != nil {
		return err
	}

	w.engine.metrics.Inc(MetricWalks, nil, 1)

	if ro.Version == Version1 {
		return w.linearWalk(ctx, target, rootOID, fn, opts)
	}
	return w.bulkWalk(ctx, target, rootOID, fn, opts)
}

// linearWalk issues repeated GETNEXT requests from the last returned OID.
func (w *Walker) linearWalk(ctx context.Context, target string, root OID, fn func(Variable) error, opts []ReqOption) error {
	current := root.Copy()
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := w.engine.GetNext(ctx, target, current.String(), opts...)
		if err != nil {
			if IsEndOfMIB(err) || IsNoSuchObject(err) || IsNoSuchInstance(err) {
				return nil
			}
			var perr *ProtocolError
			if errors.As(err, &perr) && perr.Status == NoSuchName {
				// v1 agents signal subtree end with noSuchName.
				return nil
			}
			return err
		}

		if !v.OID.HasPrefix(root) {
			return nil
		}
		if v.OID.Compare(current) <= 0 && count > 0 {
			// Loop guard: the agent returned a non-increasing OID.
			return nil
		}

		if err := fn(v); err != nil {
			return err
		}
		w.engine.metrics.Inc(MetricWalkVarbinds, nil, 1)

		count++
		if w.opts.MaxEntries > 0 && count >= w.opts.MaxEntries {
			return nil
		}
		current = v.OID
	}
}

// bulkWalk issues repeated GETBULK requests with adaptive
// max-repetitions.
func (w *Walker) bulkWalk(ctx context.Context, target string, root OID, fn func(Variable) error, opts []ReqOption) error {
	tuner := newBulkTuner(w.opts.InitialRepetitions, w.opts.BulkCeiling)
	current := root.Copy()
	var prev OID
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		callOpts := append(append([]ReqOption{}, opts...),
			NonRepeaters(0), MaxRepetitions(tuner.current))

		vars, err := w.engine.GetBulk(ctx, target, current.String(), callOpts...)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) && perr.Status == TooBig {
				// Halve and retry, but an agent that still answers tooBig
				// at max-repetitions 1 will never yield a varbind.
				if tuner.current <= 1 {
					return fmt.Errorf("%w: agent answered tooBig at max-repetitions 1", ErrMaxRetriesExceeded)
				}
				tuner.onTooBig()
				continue
			}
			return err
		}
		tuner.onSuccess()

		if len(vars) == 0 {
			return nil
		}

		for _, v := range vars {
			if v.Type == TypeEndOfMibView {
				return nil
			}
			if !v.OID.HasPrefix(root) {
				return nil
			}
			if prev != nil && v.OID.Compare(prev) <= 0 {
				return nil
			}

			if err := fn(v); err != nil {
				return err
			}
			w.engine.metrics.Inc(MetricWalkVarbinds, nil, 1)

			count++
			if w.opts.MaxEntries > 0 && count >= w.opts.MaxEntries {
				return nil
			}
			prev = v.OID
		}

		current = vars[len(vars)-1].OID
	}
}

// WalkItem is one element of a streaming walk. Err is set on the final
// item when the walk terminated on a failure.
type WalkItem struct {
	Varbind Variable
	Err     error
}

// WalkStream returns a lazy, finite, non-restartable sequence of
// varbinds. The channel closes when the walk completes; a mid-stream
// error is delivered as the last item. Cancelling the context halts the
// stream at the next iteration boundary.
func (w *Walker) WalkStream(ctx context.Context, target, root string, opts ...ReqOption) <-chan WalkItem {
	out := make(chan WalkItem)

	go func() {
		defer close(out)

		err := w.WalkFunc(ctx, target, root, func(v Variable) error {
			select {
			case out <- WalkItem{Varbind: v}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, opts...)

		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case out <- WalkItem{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

// Benchmark probes the target with escalating bulk sizes and returns the
// largest max-repetitions that answered within the walker's target
// latency, or 1 when no probed size did. The result seeds later walks.
func (w *Walker) Benchmark(ctx context.Context, target, root string, opts ...ReqOption) (int, error) {
	sizes := []int{1, 5, 10, 25, 50}
	if w.opts.BulkCeiling > sizes[len(sizes)-1] {
		sizes = append(sizes, w.opts.BulkCeiling)
	}

	best := 0
	for _, size := range sizes {
		if size > w.opts.BulkCeiling {
			break
		}
		if err := ctx.Err(); err != nil {
			return best, err
		}

		callOpts := append(append([]ReqOption{}, opts...),
			NonRepeaters(0), MaxRepetitions(size))

		start := time.Now()
		_, err := w.engine.GetBulk(ctx, target, root, callOpts...)
		elapsed := time.Since(start)

		if err != nil {
			if best == 0 {
				return 0, err
			}
			return best, nil
		}
		if elapsed > w.opts.TargetLatency {
			break
		}
		best = size
	}

	if best == 0 {
		best = 1
	}
	return best, nil
}
