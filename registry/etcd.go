// etcd-backed Registry.
//
// Endpoints live under /cross-rpc/{peer}/{addr} with a TTL lease, so a
// crashed process disappears from the registry once its lease expires instead
// of leaving a ghost entry behind.
package registry

import (
	"context"
	"encoding/json"

	"github.com/levenlabs/go-llog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/cross-rpc/"

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Announce grants a TTL lease, stores the endpoint under it and keeps the
// lease alive in the background. The lease id stays local so one registry
// instance can serve several announcing peers without racing.
func (r *EtcdRegistry) Announce(ctx context.Context, peer string, ep Endpoint, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}
	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	if _, err := r.client.Put(ctx, keyPrefix+peer+"/"+ep.Addr, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}
	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// Drain keepalive acks so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	llog.Info("announced endpoint", llog.KV{"peer": peer, "addr": ep.Addr})
	return nil
}

func (r *EtcdRegistry) Withdraw(ctx context.Context, peer string, addr string) error {
	_, err := r.client.Delete(ctx, keyPrefix+peer+"/"+addr)
	return err
}

func (r *EtcdRegistry) Resolve(ctx context.Context, peer string) ([]Endpoint, error) {
	resp, err := r.client.Get(ctx, keyPrefix+peer+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	eps := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			llog.Warn("skipping malformed registry entry", llog.KV{"key": string(kv.Key)})
			continue
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// Watch re-resolves the full endpoint set on every change under the peer's
// prefix; simpler than folding individual watch events into a local copy.
func (r *EtcdRegistry) Watch(ctx context.Context, peer string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)
	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, keyPrefix+peer+"/", clientv3.WithPrefix())
		for range watchChan {
			eps, err := r.Resolve(ctx, peer)
			if err != nil {
				continue
			}
			select {
			case ch <- eps:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error { return r.client.Close() }
