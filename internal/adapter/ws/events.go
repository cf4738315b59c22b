package ws

// EventSettingsInvalidated tells pages that the settings they show are stale.
const EventSettingsInvalidated = "settings.invalidated"

// InvalidatedEvent is the payload of EventSettingsInvalidated.
type InvalidatedEvent struct {
	Namespace string `json:"namespace"`
}
