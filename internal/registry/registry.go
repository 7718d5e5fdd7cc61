// Package registry owns the id to instance mapping.
package registry

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midisynth/internal/instance"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Registry stores live synthesizer instances. Ids start at 1, increase
// monotonically and are never handed out twice.
type Registry struct {
	engine contracts.Engine
	logger contracts.Logger

	mu        sync.RWMutex
	instances map[contracts.InstanceID]*instance.Instance
	lastID    atomic.Uint32
}

// New creates an empty registry whose instances drive engine.
func New(engine contracts.Engine, logger contracts.Logger) *Registry {
	return &Registry{
		engine:    engine,
		logger:    logger,
		instances: make(map[contracts.InstanceID]*instance.Instance),
	}
}

// Create adds a fresh Unloaded instance and returns it.
func (r *Registry) Create() *instance.Instance {
	id := contracts.InstanceID(r.lastID.Add(1))
	inst := instance.New(id, r.engine, r.logger)

	r.mu.Lock()
	r.instances[id] = inst
	r.mu.Unlock()

	r.logger.Debug("synthesizer instance created", r.logger.Field().Uint32("sfId", uint32(id)))
	return inst
}

// Get returns the instance for id.
func (r *Registry) Get(id contracts.InstanceID) (*instance.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, notFound(id)
	}
	return inst, nil
}

// Remove deletes id from the registry and returns the removed instance.
// The caller is responsible for disposing it.
func (r *Registry) Remove(id contracts.InstanceID) (*instance.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, notFound(id)
	}
	delete(r.instances, id)
	return inst, nil
}

// List returns the live ids in ascending order.
func (r *Registry) List() []contracts.InstanceID {
	r.mu.RLock()
	ids := make([]contracts.InstanceID, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Issued reports whether id was ever returned by Create, live or not.
func (r *Registry) Issued(id contracts.InstanceID) bool {
	return id != 0 && uint32(id) <= r.lastID.Load()
}

func notFound(id contracts.InstanceID) error {
	return contracts.Errorf(contracts.CodeNotFound, "no synthesizer with sfId %d", id)
}
