package loadbalance

import (
	"sync/atomic"

	"cross-rpc/registry"
)

// RoundRobin cycles through endpoints in order using a lock-free atomic
// counter. Suitable when all endpoints have similar capacity.
type RoundRobin struct {
	counter atomic.Int64
}

func (b *RoundRobin) Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	idx := b.counter.Add(1) % int64(len(endpoints))
	return &endpoints[idx], nil
}

func (b *RoundRobin) Name() string { return "RoundRobin" }
