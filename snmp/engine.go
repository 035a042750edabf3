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
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const engineWorkers = 4

// Engine is an SNMP request engine: it builds PDUs, encodes them, sends
// them over pooled UDP endpoints, and correlates responses by request-id
// with retry and timeout semantics.
type Engine struct {
	opts    *EngineOptions
	pool    *EndpointPool
	mib     *MIB
	metrics *MetricSet
	logger  *slog.Logger

	requestID int32

	// Outstanding request-ids. On a given endpoint no two concurrent
	// requests may share an id; ids are reserved engine-wide, which is
	// strictly stronger.
	outstanding     map[int32]struct{}
	outstandingLock sync.Mutex

	inFlight int64

	batch  chan *batchRequest
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

type batchRequest struct {
	run   func(ctx context.Context) ([]Variable, error)
	ctx   context.Context
	token *RequestToken
}

// NewEngine creates a request engine.
func NewEngine(opts ...EngineOption) *Engine {
	options := NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.Config != nil {
		applyConfigDefaults(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mib := options.MIB
	if mib == nil {
		mib = DefaultMIB()
	}

	e := &Engine{
		opts:        options,
		pool:        NewEndpointPool(options.Pool...),
		mib:         mib,
		metrics:     NewMetricSet(),
		logger:      logger,
		requestID:   rand.Int31(),
		outstanding: make(map[int32]struct{}),
		batch:       make(chan *batchRequest, options.QueueSize),
		done:        make(chan struct{}),
	}

	for i := 0; i < engineWorkers; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	return e
}

// applyConfigDefaults fills engine options left at their zero/default
// values from the defaults provider. Explicit options win.
func applyConfigDefaults(o *EngineOptions) {
	c := o.Config
	if o.Community == DefaultCommunity {
		o.Community = c.GetString(OptCommunity)
	}
	if o.Timeout == DefaultTimeout {
		o.Timeout = time.Duration(c.GetInt(OptTimeout)) * time.Millisecond
	}
	if o.Retries == DefaultRetries {
		o.Retries = c.GetInt(OptRetries)
	}
	if o.Port == DefaultPort {
		o.Port = c.GetInt(OptPort)
	}
	if o.MaxRepetitions == DefaultMaxRepetitions {
		o.MaxRepetitions = c.GetInt(OptMaxRepetitions)
	}
	if o.NonRepeaters == DefaultNonRepeaters {
		o.NonRepeaters = c.GetInt(OptNonRepeaters)
	}
	if v := c.GetString(OptVersion); v == "1" || v == "v1" {
		o.Version = Version1
	}
}

// Close shuts the engine down: the batch queue drains no further work,
// workers exit, and the endpoint pool closes.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(e.done)
	e.wg.Wait()

	// Fail whatever was still queued; every token completes exactly once.
	for {
		select {
		case req := <-e.batch:
			req.token.complete(ErrEngineClosed)
		default:
			return e.pool.Close()
		}
	}
}

// Metrics returns the engine's metric set.
func (e *Engine) Metrics() *MetricSet {
	return e.metrics
}

// Pool returns the engine's endpoint pool.
func (e *Engine) Pool() *EndpointPool {
	return e.pool
}

// Options returns the engine options.
func (e *Engine) Options() *EngineOptions {
	return e.opts
}

// InFlight returns the number of outstanding requests.
func (e *Engine) InFlight() int64 {
	return atomic.LoadInt64(&e.inFlight)
}

// resolve merges per-call options over engine defaults.
func (e *Engine) resolve(opts []ReqOption) RequestOptions {
	ro := RequestOptions{}
	for _, opt := range opts {
		opt(&ro)
	}

	if ro.Community == "" {
		ro.Community = e.opts.Community
	}
	if !ro.versionSet {
		ro.Version = e.opts.Version
	}
	if ro.Timeout <= 0 {
		ro.Timeout = e.opts.Timeout
	}
	if !ro.retriesSet {
		ro.Retries = e.opts.Retries
	}
	if ro.Port == 0 {
		ro.Port = e.opts.Port
	}
	if !ro.nonRepSet {
		ro.NonRepeaters = e.opts.NonRepeaters
	}
	if ro.MaxRepetitions <= 0 {
		ro.MaxRepetitions = e.opts.MaxRepetitions
	}
	return ro
}

// nextRequestID reserves a fresh 31-bit request-id not shared with any
// outstanding request.
func (e *Engine) nextRequestID() int32 {
	e.outstandingLock.Lock()
	defer e.outstandingLock.Unlock()

	for {
		id := atomic.AddInt32(&e.requestID, 1) & 0x7FFFFFFF
		if id == 0 {
			continue
		}
		if _, taken := e.outstanding[id]; taken {
			continue
		}
		e.outstanding[id] = struct{}{}
		return id
	}
}

func (e *Engine) releaseRequestID(id int32) {
	e.outstandingLock.Lock()
	delete(e.outstanding, id)
	e.outstandingLock.Unlock()
}

// Get performs a single GET and returns the varbind.
func (e *Engine) Get(ctx context.Context, target, oid string, opts ...ReqOption) (Variable, error) {
	vars, err := e.GetMany(ctx, target, []string{oid}, opts...)
	if err != nil {
		return Variable{}, err
	}
	return singleVarbind(vars)
}

// GetMany performs a GET for several OIDs in one PDU.
func (e *Engine) GetMany(ctx context.Context, target string, oids []string, opts ...ReqOption) ([]Variable, error) {
	ro := e.resolve(opts)
	parsed, err := e.parseOIDs(oids)
	if err != nil {
		return nil, err
	}

	return e.exchange(ctx, target, ro, func(id int32) *PDU {
		return NewGetRequest(id, parsed...)
	})
}

// GetNext performs a GETNEXT and returns the succeeding varbind.
func (e *Engine) GetNext(ctx context.Context, target, oid string, opts ...ReqOption) (Variable, error) {
	ro := e.resolve(opts)
	parsed, err := e.parseOIDs([]string{oid})
	if err != nil {
		return Variable{}, err
	}

	vars, err := e.exchange(ctx, target, ro, func(id int32) *PDU {
		return NewGetNextRequest(id, parsed...)
	})
	if err != nil {
		return Variable{}, err
	}
	return singleVarbind(vars)
}

// Set performs a SET. The SMI type is taken from the explicit Type option
// when present and inferred from the value otherwise.
func (e *Engine) Set(ctx context.Context, target, oid string, value interface{}, opts ...ReqOption) (Variable, error) {
	ro := e.resolve(opts)
	parsed, err := e.parseOIDs([]string{oid})
	if err != nil {
		return Variable{}, err
	}

	t := ro.Type
	if !ro.typeSet {
		t = InferType(value)
	}
	coerced, err := Coerce(value, t)
	if err != nil {
		return Variable{}, err
	}
	vb := Variable{OID: parsed[0], Type: t, Value: coerced}

	vars, err := e.exchange(ctx, target, ro, func(id int32) *PDU {
		return NewSetRequest(id, vb)
	})
	if err != nil {
		return Variable{}, err
	}
	return singleVarbind(vars)
}

// GetBulk performs a GETBULK. SNMPv2c only; under v1 it fails before any
// packet is built.
func (e *Engine) GetBulk(ctx context.Context, target, oid string, opts ...ReqOption) ([]Variable, error) {
	ro := e.resolve(opts)
	if ro.Version != Version2c {
		return nil, ErrBulkRequiresV2c
	}

	parsed, err := e.parseOIDs([]string{oid})
	if err != nil {
		return nil, err
	}

	return e.exchange(ctx, target, ro, func(id int32) *PDU {
		return NewGetBulkRequest(id, ro.NonRepeaters, ro.MaxRepetitions, parsed...)
	})
}

// GetAsync performs a GET in the background and returns a token.
func (e *Engine) GetAsync(ctx context.Context, target, oid string, opts ...ReqOption) (*RequestToken, error) {
	return e.submit(ctx, func(ctx context.Context) ([]Variable, error) {
		v, err := e.Get(ctx, target, oid, opts...)
		if err != nil {
			return nil, err
		}
		return []Variable{v}, nil
	})
}

// GetBulkAsync performs a GETBULK in the background and returns a token.
func (e *Engine) GetBulkAsync(ctx context.Context, target, oid string, opts ...ReqOption) (*RequestToken, error) {
	return e.submit(ctx, func(ctx context.Context) ([]Variable, error) {
		return e.GetBulk(ctx, target, oid, opts...)
	})
}

// submit enqueues work on the batch queue, failing fast when the queue is
// at capacity.
func (e *Engine) submit(ctx context.Context, run func(ctx context.Context) ([]Variable, error)) (*RequestToken, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	token := newRequestToken()
	req := &batchRequest{run: run, ctx: ctx, token: token}

	select {
	case e.batch <- req:
		return token, nil
	default:
		return nil, ErrQueueFull
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			return
		case req := <-e.batch:
			vars, err := req.run(req.ctx)
			req.token.Variables = vars
			req.token.complete(err)
		}
	}
}

// parseOIDs resolves symbolic names and validates each OID.
func (e *Engine) parseOIDs(oids []string) ([]OID, error) {
	parsed := make([]OID, len(oids))
	for i, s := range oids {
		oid, err := ParseOIDWith(s, e.mib)
		if err != nil {
			return nil, err
		}
		parsed[i] = oid
	}
	return parsed, nil
}

// exchange runs one request/response exchange with retries, optionally
// gated by the circuit breaker.
func (e *Engine) exchange(ctx context.Context, target string, ro RequestOptions, build func(id int32) *PDU) ([]Variable, error) {
	tgt, err := ParseTarget(target, ro.Port)
	if err != nil {
		return nil, err
	}

	if e.opts.Breaker != nil {
		var vars []Variable
		err := e.opts.Breaker.Call(tgt.String(), ro.Timeout*time.Duration(ro.Retries+1), func() error {
			var callErr error
			vars, callErr = e.doExchange(ctx, tgt, ro, build)
			return callErr
		})
		return vars, err
	}

	return e.doExchange(ctx, tgt, ro, build)
}

func (e *Engine) doExchange(ctx context.Context, tgt *Target, ro RequestOptions, build func(id int32) *PDU) ([]Variable, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	addr, err := tgt.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	id := e.nextRequestID()
	defer e.releaseRequestID(id)

	pdu := build(id)
	msg := &Message{Version: ro.Version, Community: ro.Community, PDU: pdu}
	data, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	pe, err := e.pool.Checkout()
	if err != nil {
		return nil, err
	}

	atomic.AddInt64(&e.inFlight, 1)
	e.metrics.AddGauge(MetricInFlight, nil, 1)
	defer func() {
		atomic.AddInt64(&e.inFlight, -1)
		e.metrics.AddGauge(MetricInFlight, nil, -1)
	}()

	start := time.Now()
	resp, err := e.attempts(ctx, pe, addr, data, id, ro)
	if err != nil {
		e.metrics.Inc(MetricErrors, nil, 1)
		if Recoverable(err) {
			e.pool.CheckinError(pe, err)
		} else {
			e.pool.Checkin(pe)
		}
		return nil, err
	}
	e.pool.Checkin(pe)
	e.metrics.Observe(MetricRequestLatency, nil, time.Since(start).Milliseconds())
	e.metrics.Inc(MetricVarbindsReceived, nil, int64(len(resp.Variables)))

	if resp.ErrorStatus != NoError {
		var oid OID
		if resp.ErrorIndex > 0 && resp.ErrorIndex <= len(pdu.Variables) {
			oid = pdu.Variables[resp.ErrorIndex-1].OID
		}
		return nil, NewProtocolError(resp.ErrorStatus, resp.ErrorIndex, oid)
	}

	return resp.Variables, nil
}

// attempts sends the encoded request and awaits the matching response,
// retrying on recoverable failures. Retries reuse the request-id, so a
// late response to an earlier attempt still completes the call.
func (e *Engine) attempts(ctx context.Context, pe *PooledEndpoint, addr *net.UDPAddr, data []byte, id int32, ro RequestOptions) (*PDU, error) {
	var lastErr error

	for attempt := 0; attempt <= ro.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			e.metrics.Inc(MetricRetries, nil, 1)
			e.logger.Debug("retrying request", "attempt", attempt, "request_id", id)
		}

		if err := pe.endpoint.Send(addr, data); err != nil {
			lastErr = err
			if !Recoverable(err) {
				return nil, err
			}
			continue
		}
		e.metrics.Inc(MetricRequestsSent, nil, 1)

		resp, err := e.await(ctx, pe, id, ro.Timeout)
		if err == nil {
			e.metrics.Inc(MetricResponsesReceived, nil, 1)
			return resp, nil
		}

		lastErr = err
		if IsTimeout(err) {
			e.metrics.Inc(MetricTimeouts, nil, 1)
		}
		if !Recoverable(err) {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = ErrMaxRetriesExceeded
	}
	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// await reads datagrams until one decodes to a response carrying the
// expected request-id. Responses for unknown ids are discarded and
// logged.
func (e *Engine) await(ctx context.Context, pe *PooledEndpoint, id int32, timeout time.Duration) (*PDU, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, maxMessageSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		// Cap each read so caller cancellation is noticed promptly.
		slice := remaining
		if slice > 250*time.Millisecond {
			slice = 250 * time.Millisecond
		}

		n, _, err := pe.endpoint.Recv(buf, slice)
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			return nil, err
		}

		msg, err := DecodeMessage(buf[:n])
		if err != nil {
			e.logger.Warn("undecodable response", "error", err)
			e.metrics.Inc(MetricDiscarded, nil, 1)
			continue
		}

		if msg.PDU.RequestID != id {
			e.logger.Debug("discarding response for unknown request id",
				"got", msg.PDU.RequestID, "want", id)
			e.metrics.Inc(MetricDiscarded, nil, 1)
			continue
		}

		return msg.PDU, nil
	}
}

// singleVarbind extracts the first varbind and maps exception sentinels
// onto their error kinds.
func singleVarbind(vars []Variable) (Variable, error) {
	if len(vars) == 0 {
		return Variable{}, NewParseError("empty_varbind_list", -1)
	}
	v := vars[0]
	switch v.Type {
	case TypeNoSuchObject:
		return v, ErrNoSuchObject
	case TypeNoSuchInstance:
		return v, ErrNoSuchInstance
	case TypeEndOfMibView:
		return v, ErrEndOfMIB
	}
	return v, nil
}
