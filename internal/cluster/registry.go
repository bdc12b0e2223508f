// Package cluster provides access to the coordination-service state the
// engine depends on: the cluster-instance identifier and the bootstrap
// root username.
package cluster

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/loamstore/access/internal/errors"
)

// Coordination keys. These live in the cluster's shared metadata store, not
// in any per-node cache.
const (
	instanceIDKey   = "access:cluster:instance_id"
	rootUsernameKey = "access:cluster:root_username"
)

// ErrNotBootstrapped indicates the cluster metadata has not been seeded yet.
var ErrNotBootstrapped = apperrors.Wrap(apperrors.ErrNotFound, "cluster not bootstrapped")

// Registry resolves cluster-wide metadata.
type Registry interface {
	// InstanceID returns the cluster-instance identifier.
	InstanceID(ctx context.Context) (string, error)

	// RootUsername returns the bootstrap superuser name. Returns
	// ErrNotBootstrapped before InitializeSecurity has run.
	RootUsername(ctx context.Context) (string, error)

	// SetRootUsername records the bootstrap superuser name. Called exactly
	// once per cluster lifetime by the bootstrap flow.
	SetRootUsername(ctx context.Context, name string) error
}

// RedisRegistry reads cluster metadata from the coordination store.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry creates a Registry backed by the coordination store.
func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

// InstanceID returns the cluster-instance identifier.
func (r *RedisRegistry) InstanceID(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, instanceIDKey).Result()
	if err == redis.Nil {
		return "", ErrNotBootstrapped
	}
	if err != nil {
		return "", apperrors.Wrap(err, "failed to resolve instance id")
	}
	return id, nil
}

// SetInstanceID records the cluster-instance identifier. Used by deployment
// tooling when standing up a new cluster.
func (r *RedisRegistry) SetInstanceID(ctx context.Context, id string) error {
	if err := r.rdb.Set(ctx, instanceIDKey, id, 0).Err(); err != nil {
		return apperrors.Wrap(err, "failed to record instance id")
	}
	return nil
}

// RootUsername returns the bootstrap superuser name.
func (r *RedisRegistry) RootUsername(ctx context.Context) (string, error) {
	name, err := r.rdb.Get(ctx, rootUsernameKey).Result()
	if err == redis.Nil {
		return "", ErrNotBootstrapped
	}
	if err != nil {
		return "", apperrors.Wrap(err, "failed to resolve root username")
	}
	return name, nil
}

// SetRootUsername records the bootstrap superuser name.
func (r *RedisRegistry) SetRootUsername(ctx context.Context, name string) error {
	if err := r.rdb.Set(ctx, rootUsernameKey, name, 0).Err(); err != nil {
		return apperrors.Wrap(err, "failed to record root username")
	}
	return nil
}

// StaticRegistry serves fixed cluster metadata from configuration. Used for
// single-node and in-memory deployments that run without a coordination
// store.
type StaticRegistry struct {
	instanceID string

	mu           sync.Mutex
	rootUsername string
}

// NewStaticRegistry creates a Registry with fixed values. An empty root
// username means the cluster is not bootstrapped yet.
func NewStaticRegistry(instanceID, rootUsername string) *StaticRegistry {
	return &StaticRegistry{instanceID: instanceID, rootUsername: rootUsername}
}

// InstanceID returns the configured instance identifier.
func (r *StaticRegistry) InstanceID(_ context.Context) (string, error) {
	return r.instanceID, nil
}

// RootUsername returns the configured root username. Request handlers read
// this concurrently with the bootstrap flow writing it.
func (r *StaticRegistry) RootUsername(_ context.Context) (string, error) {
	r.mu.Lock()
	name := r.rootUsername
	r.mu.Unlock()
	if name == "" {
		return "", ErrNotBootstrapped
	}
	return name, nil
}

// SetRootUsername records the bootstrap superuser name.
func (r *StaticRegistry) SetRootUsername(_ context.Context, name string) error {
	r.mu.Lock()
	r.rootUsername = name
	r.mu.Unlock()
	return nil
}
