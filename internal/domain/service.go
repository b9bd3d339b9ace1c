package domain

// ServiceDescriptor describes one configured AI backend as reported by the
// provider registry at request time. Descriptors are not cached beyond a
// single resolution since availability can change between calls.
type ServiceDescriptor struct {
	// Slug uniquely identifies the service (e.g. "gemini").
	Slug string `json:"slug"`

	// DisplayName is the human-readable service name.
	DisplayName string `json:"display_name"`

	// Available reports whether the service is configured and usable right now.
	Available bool `json:"available"`

	// Capabilities is the set of capabilities the service supports.
	Capabilities CapabilitySet `json:"capabilities"`
}

// Supports reports whether the service is available and covers every required capability.
func (d ServiceDescriptor) Supports(required CapabilitySet) bool {
	return d.Available && d.Capabilities.Covers(required)
}

// ServiceMetadata is the display metadata for a registered service.
type ServiceMetadata struct {
	DisplayName string `json:"display_name"`
}

// ModelDescriptor describes one model offered by a service.
type ModelDescriptor struct {
	// ID is the provider model identifier.
	ID string `json:"id"`

	// Capabilities is the set of capabilities the model supports.
	Capabilities CapabilitySet `json:"capabilities"`
}
