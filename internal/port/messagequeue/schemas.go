package messagequeue

// InvalidatedPayload is the schema for settings.invalidated messages.
type InvalidatedPayload struct {
	Namespace string `json:"namespace"`
	// Origin is the publishing process epoch; receivers ignore their own messages.
	Origin string `json:"origin"`
	// Generation is the publisher's namespace generation after the write.
	Generation uint64 `json:"generation"`
}
