// Package registry provides peer discovery: a connection endpoint announces
// itself under a peer name, and dialing code resolves a peer name to the set
// of live endpoints. The engine itself never touches the registry; it is
// purely bootstrap plumbing.
package registry

import "context"

// Endpoint is one announced connection endpoint for a named peer.
type Endpoint struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight,omitempty"`
	Version string `json:"version,omitempty"`
}

// Registry is the discovery interface. Implementations must be safe for
// concurrent use.
type Registry interface {
	// Announce publishes an endpoint under the peer name with a TTL in
	// seconds; the entry is kept alive until Withdraw or process death.
	Announce(ctx context.Context, peer string, ep Endpoint, ttl int64) error

	// Withdraw removes a previously announced endpoint.
	Withdraw(ctx context.Context, peer string, addr string) error

	// Resolve returns the currently live endpoints for a peer.
	Resolve(ctx context.Context, peer string) ([]Endpoint, error)

	// Watch emits a fresh endpoint list whenever the peer's set changes.
	Watch(ctx context.Context, peer string) <-chan []Endpoint
}
