// Package loadbalance selects one endpoint from a resolved peer set when the
// dialing code has several to choose from.
package loadbalance

import (
	"errors"

	"cross-rpc/registry"
)

// ErrNoEndpoints is returned when the resolved set is empty.
var ErrNoEndpoints = errors.New("loadbalance: no endpoints available")

// Balancer picks one endpoint per dial. Implementations must be safe for
// concurrent use.
type Balancer interface {
	Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error)
	Name() string
}
