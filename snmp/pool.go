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
	"log/slog"
	"sync"
	"time"
)

// Endpoints accumulating this many errors are evicted from the pool.
const endpointErrorThreshold = 5

// PooledEndpoint is a checkout token wrapping a UDP endpoint. It must be
// returned exactly once, via Checkin or CheckinError.
type PooledEndpoint struct {
	endpoint *Endpoint

	created  time.Time
	lastUsed time.Time
	useCount int64
	errCount int
	inUse    bool
}

// UseCount returns the endpoint's cumulative checkout count.
func (pe *PooledEndpoint) UseCount() int64 { return pe.useCount }

// EndpointPool pools and recycles UDP endpoints.
type EndpointPool struct {
	opts    *PoolOptions
	logger  *slog.Logger
	mu      sync.Mutex
	entries []*PooledEndpoint
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool

	created int64
	evicted int64
}

// NewEndpointPool creates a pool. Endpoints are allocated on demand up to
// PoolSize; a background sweep closes endpoints idle past MaxIdleTime.
func NewEndpointPool(opts ...PoolOption) *EndpointPool {
	options := NewPoolOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &EndpointPool{
		opts:   options,
		logger: logger,
		done:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.sweeper()

	return p
}

// Checkout returns an available endpoint, allocating a new one up to
// PoolSize. When every endpoint is in use it fails fast with
// ErrPoolExhausted rather than blocking past the caller's timeout.
func (p *EndpointPool) Checkout() (*PooledEndpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrEngineClosed
	}

	for _, pe := range p.entries {
		if !pe.inUse {
			pe.inUse = true
			pe.lastUsed = time.Now()
			pe.useCount++
			return pe, nil
		}
	}

	if len(p.entries) >= p.opts.PoolSize {
		return nil, ErrPoolExhausted
	}

	ep, err := OpenEndpoint(0)
	if err != nil {
		return nil, err
	}

	pe := &PooledEndpoint{
		endpoint: ep,
		created:  time.Now(),
		lastUsed: time.Now(),
		useCount: 1,
		inUse:    true,
	}
	p.entries = append(p.entries, pe)
	p.created++
	return pe, nil
}

// Checkin returns an endpoint to the available queue.
func (p *EndpointPool) Checkin(pe *PooledEndpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !pe.inUse {
		return
	}
	pe.inUse = false
	pe.lastUsed = time.Now()
}

// CheckinError returns an endpoint while recording a transport error
// against it. Endpoints past the error threshold are closed and removed.
func (p *EndpointPool) CheckinError(pe *PooledEndpoint, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !pe.inUse {
		return
	}
	pe.inUse = false
	pe.lastUsed = time.Now()
	pe.errCount++

	if pe.errCount >= endpointErrorThreshold {
		p.logger.Debug("evicting endpoint", "errors", pe.errCount, "last_error", err)
		p.removeLocked(pe)
	}
}

func (p *EndpointPool) removeLocked(pe *PooledEndpoint) {
	for i, entry := range p.entries {
		if entry == pe {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			pe.endpoint.Close()
			p.evicted++
			return
		}
	}
}

// Close shuts down the pool and every endpoint in it.
func (p *EndpointPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pe := range p.entries {
		pe.endpoint.Close()
	}
	p.entries = nil
	return nil
}

func (p *EndpointPool) sweeper() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep closes endpoints idle past MaxIdleTime.
func (p *EndpointPool) sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	kept := p.entries[:0]
	for _, pe := range p.entries {
		if !pe.inUse && now.Sub(pe.lastUsed) > p.opts.MaxIdleTime {
			pe.endpoint.Close()
			p.evicted++
			continue
		}
		kept = append(kept, pe)
	}
	p.entries = kept
}

// PoolStats is a point-in-time snapshot of pool accounting.
type PoolStats struct {
	Available int
	InUse     int
	Total     int
	Created   int64
	Evicted   int64
}

// Stats returns a snapshot. At all times Available + InUse = Total and
// Total never exceeds the configured pool size.
func (p *EndpointPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PoolStats{
		Total:   len(p.entries),
		Created: p.created,
		Evicted: p.evicted,
	}
	for _, pe := range p.entries {
		if pe.inUse {
			s.InUse++
		} else {
			s.Available++
		}
	}
	return s
}
