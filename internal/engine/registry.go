package engine

import (
	"context"
	"sync"
)

// DefaultKey is the registry key used when no credential is supplied
// and the configured default credential applies.
const DefaultKey = "default"

// Factory constructs an Engine for a credential. An empty credential
// means "use the configured default".
type Factory func(ctx context.Context, credential string) (*Engine, error)

// Registry is the process-wide cache of engines keyed by credential.
//
// For a fixed credential key, at most one Engine exists at any time;
// the construct-if-absent path holds the registry lock so concurrent
// first requests for the same unseen key cannot build two engines.
// Construction failures are returned and not cached — a later retry
// may succeed.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
	factory Factory
}

// NewRegistry creates a registry around an engine factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
		factory: factory,
	}
}

// Engine returns the engine for the credential, constructing it on
// first use. Repeated calls with the same credential return the same
// instance for the process lifetime.
//
// Construction (embedder load, store open, client configuration) can
// be slow; holding the lock across it is acceptable at this layer's
// low contention and is what guarantees the one-engine-per-credential
// invariant.
func (r *Registry) Engine(ctx context.Context, credential string) (*Engine, error) {
	key := credential
	if key == "" {
		key = DefaultKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[key]; ok {
		return engine, nil
	}

	engine, err := r.factory(ctx, credential)
	if err != nil {
		return nil, err
	}

	r.engines[key] = engine
	return engine, nil
}

// Len reports the number of cached engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
