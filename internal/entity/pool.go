package entity

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Pool.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Change describes a successful attribute merge.
// Attributes holds only the merged delta, not the full attribute set.
type Change struct {
	EntityID   string
	EntityType Type
	Attributes map[string]any
}

// ChangeListener receives attribute changes.
type ChangeListener func(Change)

// Pool is a keyed store of entities.
//
// All public methods are thread-safe. Listeners are invoked synchronously
// after the pool lock has been released, in registration order.
type Pool struct {
	name      string
	entities  map[string]*Entity
	mu        sync.RWMutex
	listeners []ChangeListener
	listMu    sync.RWMutex
	logger    Logger
}

// NewPool creates an empty pool. The name is used in log entries.
func NewPool(name string) *Pool {
	return &Pool{
		name:     name,
		entities: make(map[string]*Entity),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the pool.
func (p *Pool) SetLogger(logger Logger) {
	p.logger = logger
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// OnChange registers a listener for attribute changes.
func (p *Pool) OnChange(listener ChangeListener) {
	p.listMu.Lock()
	p.listeners = append(p.listeners, listener)
	p.listMu.Unlock()
}

// Add inserts an entity. It returns false, leaving the existing entity in
// place, if the id is already present.
func (p *Pool) Add(e *Entity) bool {
	if e == nil {
		return false
	}
	p.mu.Lock()
	if _, exists := p.entities[e.ID()]; exists {
		p.mu.Unlock()
		p.logger.Warn("entity already exists", "pool", p.name, "entity_id", e.ID())
		return false
	}
	p.entities[e.ID()] = e
	p.mu.Unlock()

	p.logger.Debug("entity added", "pool", p.name, "entity_id", e.ID(), "type", e.Type())
	return true
}

// Remove deletes an entity by id. It returns false if the id was absent.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	_, exists := p.entities[id]
	delete(p.entities, id)
	p.mu.Unlock()

	if exists {
		p.logger.Debug("entity removed", "pool", p.name, "entity_id", id)
	}
	return exists
}

// Get returns the entity with the given id.
func (p *Pool) Get(id string) (*Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entities[id]
	return e, ok
}

// Contains reports whether the id is present.
func (p *Pool) Contains(id string) bool {
	_, ok := p.Get(id)
	return ok
}

// Count returns the number of entities.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entities)
}

// List returns the entities ordered by id.
func (p *Pool) List() []*Entity {
	p.mu.RLock()
	list := make([]*Entity, 0, len(p.entities))
	for _, e := range p.entities {
		list = append(list, e)
	}
	p.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

// Descriptors returns the catalogue of all entities, ordered by id.
func (p *Pool) Descriptors() []Descriptor {
	list := p.List()
	out := make([]Descriptor, 0, len(list))
	for _, e := range list {
		out = append(out, e.Descriptor())
	}
	return out
}

// States returns the attribute snapshot of all entities, ordered by id.
func (p *Pool) States() []State {
	list := p.List()
	out := make([]State, 0, len(list))
	for _, e := range list {
		out = append(out, e.State())
	}
	return out
}

// Clear removes every entity.
func (p *Pool) Clear() {
	p.mu.Lock()
	n := len(p.entities)
	p.entities = make(map[string]*Entity)
	p.mu.Unlock()

	p.logger.Debug("pool cleared", "pool", p.name, "removed", n)
}

// UpdateAttributes merges partial into the entity's attributes.
//
// Either the entity exists and every key is applied, or nothing is applied
// and false is returned. On success listeners receive a Change carrying
// only the keys in partial.
func (p *Pool) UpdateAttributes(id string, partial map[string]any) bool {
	e, ok := p.Get(id)
	if !ok {
		p.logger.Debug("attribute update for unknown entity", "pool", p.name, "entity_id", id)
		return false
	}

	e.merge(partial)

	p.notify(Change{
		EntityID:   id,
		EntityType: e.Type(),
		Attributes: deepCopyMap(partial),
	})
	return true
}

// notify invokes every listener with the change.
func (p *Pool) notify(c Change) {
	p.listMu.RLock()
	listeners := make([]ChangeListener, len(p.listeners))
	copy(listeners, p.listeners)
	p.listMu.RUnlock()

	for _, l := range listeners {
		l(c)
	}
}
