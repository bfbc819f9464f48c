package loadbalance

import (
	"math/rand"

	"cross-rpc/registry"
)

// WeightedRandom picks endpoints with probability proportional to their
// announced weight. Endpoints without a weight count as weight 1, so a mixed
// set still resolves.
type WeightedRandom struct{}

func (b *WeightedRandom) Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	total := 0
	for _, ep := range endpoints {
		total += weightOf(ep)
	}
	r := rand.Intn(total)
	for i := range endpoints {
		r -= weightOf(endpoints[i])
		if r < 0 {
			return &endpoints[i], nil
		}
	}
	return &endpoints[len(endpoints)-1], nil
}

func (b *WeightedRandom) Name() string { return "WeightedRandom" }

func weightOf(ep registry.Endpoint) int {
	if ep.Weight <= 0 {
		return 1
	}
	return ep.Weight
}
