// Package entity provides the entity pools a driver exposes to the hub.
//
// An Entity is the driver-side abstraction of something controllable: a
// light, a cover, a media player. It has a stable id, a type tag, a feature
// list and an attribute map that the hub mirrors.
//
// Two Pool instances exist at runtime:
//
//	available  - everything the driver can offer
//	configured - the subset the hub subscribed to
//
// Subscribing copies the *Entity reference from available into configured,
// so both pools observe the same attribute map. Attribute changes go through
// UpdateAttributes on the configured pool, which merges the delta and
// notifies change listeners with only the keys that changed.
//
// # Usage
//
//	available := entity.NewPool("available")
//	configured := entity.NewPool("configured")
//	configured.OnChange(func(c entity.Change) { ... })
//
//	light, _ := entity.New(entity.Definition{
//	    ID:   "light.kitchen",
//	    Type: entity.TypeLight,
//	    Name: protocol.LanguageText{"en": "Kitchen"},
//	})
//	available.Add(light)
//	entity.Subscribe(available, configured, []string{"light.kitchen"})
//	configured.UpdateAttributes("light.kitchen", map[string]any{"state": "ON"})
//
// # Thread Safety
//
// Pools and entities are safe for concurrent use.
package entity
