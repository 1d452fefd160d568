package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// CommandHandler executes an entity command and returns the status code used
// to acknowledge the hub's request.
type CommandHandler interface {
	HandleCommand(ctx context.Context, e *Entity, cmdID string, params map[string]any) int
}

// CommandFunc adapts a function to CommandHandler.
type CommandFunc func(ctx context.Context, e *Entity, cmdID string, params map[string]any) int

// HandleCommand implements CommandHandler.
func (f CommandFunc) HandleCommand(ctx context.Context, e *Entity, cmdID string, params map[string]any) int {
	return f(ctx, e, cmdID, params)
}

// Definition describes an entity to create.
type Definition struct {
	ID          string
	Name        protocol.LanguageText
	Type        Type
	Features    []string
	Attributes  map[string]any
	DeviceClass string
	Options     map[string]any
	Area        string
	Handler     CommandHandler
}

// Entity is a controllable abstraction exposed to the hub.
//
// Identity fields are immutable after creation. The attribute map and the
// command handler are guarded by the entity's own lock because the same
// *Entity is shared between the available and configured pools.
type Entity struct {
	id          string
	name        protocol.LanguageText
	typ         Type
	features    []string
	deviceClass string
	options     map[string]any
	area        string

	mu         sync.RWMutex
	attributes map[string]any
	handler    CommandHandler
}

// New creates an entity from a definition.
func New(def Definition) (*Entity, error) {
	if def.ID == "" {
		return nil, ErrInvalidID
	}
	if !def.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, def.Type)
	}

	name := make(protocol.LanguageText, len(def.Name))
	for lang, text := range def.Name {
		name[lang] = text
	}

	return &Entity{
		id:          def.ID,
		name:        name,
		typ:         def.Type,
		features:    append([]string(nil), def.Features...),
		deviceClass: def.DeviceClass,
		options:     deepCopyMap(def.Options),
		area:        def.Area,
		attributes:  deepCopyMap(def.Attributes),
		handler:     def.Handler,
	}, nil
}

// ID returns the entity identifier.
func (e *Entity) ID() string { return e.id }

// Type returns the entity type tag.
func (e *Entity) Type() Type { return e.typ }

// Name returns a copy of the language-keyed display name.
func (e *Entity) Name() protocol.LanguageText {
	name := make(protocol.LanguageText, len(e.name))
	for lang, text := range e.name {
		name[lang] = text
	}
	return name
}

// Features returns a copy of the feature list.
func (e *Entity) Features() []string {
	return append([]string(nil), e.features...)
}

// Area returns the optional area label.
func (e *Entity) Area() string { return e.area }

// DeviceClass returns the optional device class.
func (e *Entity) DeviceClass() string { return e.deviceClass }

// Attributes returns a deep copy of the attribute map.
func (e *Entity) Attributes() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return deepCopyMap(e.attributes)
}

// Attribute returns a single attribute value.
func (e *Entity) Attribute(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attributes[key]
	return deepCopyValue(v), ok
}

// CommandHandler returns the installed command handler, or nil.
func (e *Entity) CommandHandler() CommandHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handler
}

// SetCommandHandler installs or (with nil) removes the command handler.
func (e *Entity) SetCommandHandler(h CommandHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Command runs the installed command handler.
// ok is false when no handler is installed; the caller then falls back to
// the driver-level command notification.
func (e *Entity) Command(ctx context.Context, cmdID string, params map[string]any) (code int, ok bool) {
	h := e.CommandHandler()
	if h == nil {
		return 0, false
	}
	return h.HandleCommand(ctx, e, cmdID, params), true
}

// merge applies partial to the attribute map. Last write wins per key.
func (e *Entity) merge(partial map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attributes == nil {
		e.attributes = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		e.attributes[k] = deepCopyValue(v)
	}
}

// Descriptor is the entry for an entity in the available_entities response.
type Descriptor struct {
	EntityID    string                `json:"entity_id"`
	EntityType  Type                  `json:"entity_type"`
	Name        protocol.LanguageText `json:"name"`
	Features    []string              `json:"features"`
	Area        string                `json:"area,omitempty"`
	DeviceClass string                `json:"device_class,omitempty"`
	Options     map[string]any        `json:"options,omitempty"`
	Attributes  map[string]any        `json:"attributes,omitempty"`
}

// Descriptor returns the catalogue description of the entity.
func (e *Entity) Descriptor() Descriptor {
	features := e.Features()
	if features == nil {
		features = []string{}
	}
	return Descriptor{
		EntityID:    e.id,
		EntityType:  e.typ,
		Name:        e.Name(),
		Features:    features,
		Area:        e.area,
		DeviceClass: e.deviceClass,
		Options:     deepCopyMap(e.options),
		Attributes:  e.Attributes(),
	}
}

// State is the entry for an entity in the entity_states response.
type State struct {
	EntityID   string         `json:"entity_id"`
	EntityType Type           `json:"entity_type"`
	Attributes map[string]any `json:"attributes"`
}

// State returns the current attribute snapshot of the entity.
func (e *Entity) State() State {
	attrs := e.Attributes()
	if attrs == nil {
		attrs = map[string]any{}
	}
	return State{
		EntityID:   e.id,
		EntityType: e.typ,
		Attributes: attrs,
	}
}

// deepCopyMap copies a map of JSON-like values.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue copies nested maps and slices; scalars are returned as-is.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
