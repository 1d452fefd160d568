package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "hubdriver"

// Topic kinds under <prefix>/entity/<entity_id>/.
const (
	KindCommand = "command"
	KindState   = "state"
	KindChange  = "change"
)

// Topics builds the driver's MQTT topics.
//
//	<prefix>/status                      driver online/offline (retained, LWT)
//	<prefix>/device/state                hub-facing device state (retained)
//	<prefix>/entity/<entity_id>/command  commands for the device bridge
//	<prefix>/entity/<entity_id>/state    attribute updates from the bridge
//	<prefix>/entity/<entity_id>/change   attribute changes reported to the hub (retained)
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string { return t.prefix }

// Status is the retained driver availability topic.
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// DeviceState mirrors the device state reported to the hub.
func (t Topics) DeviceState() string {
	return t.prefix + "/device/state"
}

// EntityCommand is where commands for entityID are published.
func (t Topics) EntityCommand(entityID string) string {
	return t.entity(entityID, KindCommand)
}

// EntityState is where the bridge publishes attribute updates for entityID.
func (t Topics) EntityState(entityID string) string {
	return t.entity(entityID, KindState)
}

// EntityChange is where attribute changes of entityID are mirrored.
func (t Topics) EntityChange(entityID string) string {
	return t.entity(entityID, KindChange)
}

// AllEntityStates matches the state topic of every entity.
func (t Topics) AllEntityStates() string {
	return t.entity("+", KindState)
}

func (t Topics) entity(entityID, kind string) string {
	return fmt.Sprintf("%s/entity/%s/%s", t.prefix, entityID, kind)
}

// ParseEntityTopic splits an entity topic into its entity id and kind.
// ok is false for topics outside <prefix>/entity/.
func (t Topics) ParseEntityTopic(topic string) (entityID, kind string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix+"/entity/")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	entityID, kind = rest[:i], rest[i+1:]
	if !ValidTopicSegment(entityID) {
		return "", "", false
	}
	return entityID, kind, true
}

// ValidTopicSegment reports whether s can be used as one topic level.
func ValidTopicSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#")
}

// maxTopicLen is the MQTT limit on the UTF-8 encoded topic length.
const maxTopicLen = 65535

// checkTopic validates a topic name, or a subscription filter when filter
// is true. Filters may use + for a whole level and # as the last level.
func checkTopic(topic string, filter bool) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	case len(topic) > maxTopicLen:
		return fmt.Errorf("%w: %d bytes", ErrInvalidTopic, len(topic))
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidTopic)
	}

	if !filter {
		if strings.ContainsAny(topic, "+#") {
			return fmt.Errorf("%w: wildcard in %q", ErrInvalidTopic, topic)
		}
		return nil
	}

	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if level == "#" && i != len(levels)-1 {
			return fmt.Errorf("%w: # must be the last level in %q", ErrInvalidTopic, topic)
		}
		if len(level) > 1 && strings.ContainsAny(level, "+#") {
			return fmt.Errorf("%w: wildcard must fill a level in %q", ErrInvalidTopic, topic)
		}
	}
	return nil
}
