package entity

// Type is the entity type tag.
type Type string

// Entity types known to the hub.
const (
	TypeActivity       Type = "activity"
	TypeButton         Type = "button"
	TypeClimate        Type = "climate"
	TypeCover          Type = "cover"
	TypeIREmitter      Type = "ir_emitter"
	TypeLight          Type = "light"
	TypeMediaPlayer    Type = "media_player"
	TypeRemote         Type = "remote"
	TypeSelect         Type = "select"
	TypeSensor         Type = "sensor"
	TypeSwitch         Type = "switch"
	TypeVoiceAssistant Type = "voice_assistant"
)

// AllTypes returns every supported entity type.
func AllTypes() []Type {
	return []Type{
		TypeActivity, TypeButton, TypeClimate, TypeCover, TypeIREmitter, TypeLight,
		TypeMediaPlayer, TypeRemote, TypeSelect, TypeSensor, TypeSwitch, TypeVoiceAssistant,
	}
}

// Valid reports whether t is a supported entity type.
func (t Type) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}
