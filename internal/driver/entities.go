package driver

import (
	"fmt"
	"maps"

	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/config"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// BuildEntities creates the entity catalogue from configuration.
//
// Stored snapshot attributes are merged over the configured initial
// attributes. Every entity gets handler, which may be nil.
func BuildEntities(defs []config.EntityConfig, snapshots map[string]map[string]any, handler entity.CommandHandler) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, 0, len(defs))
	for _, def := range defs {
		attrs := make(map[string]any, len(def.Attributes))
		maps.Copy(attrs, def.Attributes)
		maps.Copy(attrs, snapshots[def.ID])

		name := protocol.LanguageText(def.Name)
		if len(name) == 0 {
			name = protocol.LanguageText{"en": def.ID}
		}

		e, err := entity.New(entity.Definition{
			ID:          def.ID,
			Name:        name,
			Type:        entity.Type(def.Type),
			Features:    def.Features,
			Attributes:  attrs,
			DeviceClass: def.DeviceClass,
			Options:     def.Options,
			Area:        def.Area,
			Handler:     handler,
		})
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", def.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// commandAttributes derives the attribute delta for a command executed
// without a device link: params are applied as attributes and the common
// power commands set state.
func commandAttributes(e *entity.Entity, cmdID string, params map[string]any) map[string]any {
	delta := make(map[string]any, len(params)+1)
	maps.Copy(delta, params)

	switch cmdID {
	case "on":
		delta["state"] = "ON"
	case "off":
		delta["state"] = "OFF"
	case "toggle":
		if current, _ := e.Attribute("state"); current == "ON" {
			delta["state"] = "OFF"
		} else {
			delta["state"] = "ON"
		}
	}
	return delta
}
