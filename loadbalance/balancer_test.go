package loadbalance

import (
	"testing"

	"cross-rpc/registry"
)

func TestRoundRobinCycles(t *testing.T) {
	endpoints := []registry.Endpoint{
		{Addr: "10.0.0.1:9770"},
		{Addr: "10.0.0.2:9770"},
		{Addr: "10.0.0.3:9770"},
	}

	b := &RoundRobin{}
	seen := map[string]int{}
	for i := 0; i < 9; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		seen[ep.Addr]++
	}
	for _, ep := range endpoints {
		if seen[ep.Addr] != 3 {
			t.Errorf("endpoint %s picked %d times, want 3", ep.Addr, seen[ep.Addr])
		}
	}
}

func TestRoundRobinEmptySet(t *testing.T) {
	b := &RoundRobin{}
	if _, err := b.Pick(nil); err != ErrNoEndpoints {
		t.Errorf("got %v, want ErrNoEndpoints", err)
	}
}

func TestWeightedRandomRespectsWeights(t *testing.T) {
	endpoints := []registry.Endpoint{
		{Addr: "heavy", Weight: 9},
		{Addr: "light", Weight: 1},
	}

	b := &WeightedRandom{}
	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		seen[ep.Addr]++
	}
	// With a 9:1 weight ratio the heavy endpoint should dominate. The bound
	// is loose enough that a fair RNG essentially never trips it.
	if seen["heavy"] < seen["light"] {
		t.Errorf("weights ignored: heavy=%d light=%d", seen["heavy"], seen["light"])
	}
	if seen["light"] == 0 {
		t.Error("light endpoint never picked")
	}
}

func TestWeightedRandomDefaultsZeroWeight(t *testing.T) {
	endpoints := []registry.Endpoint{
		{Addr: "a"},
		{Addr: "b", Weight: -5},
	}

	b := &WeightedRandom{}
	for i := 0; i < 100; i++ {
		if _, err := b.Pick(endpoints); err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
	}
}

func TestWeightedRandomEmptySet(t *testing.T) {
	b := &WeightedRandom{}
	if _, err := b.Pick(nil); err != ErrNoEndpoints {
		t.Errorf("got %v, want ErrNoEndpoints", err)
	}
}
