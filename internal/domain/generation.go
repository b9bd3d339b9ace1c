package domain

// OperationKind classifies a generation request by what it needs from a backend.
type OperationKind string

// Operation kinds.
const (
	// OperationText is plain text generation from a prompt.
	OperationText OperationKind = "text"

	// OperationAltTextFromImage is text generation with image input.
	OperationAltTextFromImage OperationKind = "alt_text_from_image"

	// OperationImageGeneration produces images from a prompt.
	OperationImageGeneration OperationKind = "image_generation"
)

// String returns the string representation of the OperationKind.
func (o OperationKind) String() string {
	return string(o)
}

// Part is an auxiliary payload passed through to the backend unmodified.
// Either Data (inline bytes) or URI (a referenced file) is set.
type Part struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// IsInline reports whether the part carries inline data.
func (p Part) IsInline() bool {
	return len(p.Data) > 0
}

// ImagePayload is one generated image, either inline bytes or a file reference.
type ImagePayload struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// GenerationRequest is a single generation request issued to a resolved service.
type GenerationRequest struct {
	// Feature names the feature that produced the prompt.
	Feature Feature

	// Prompt is the fully composed prompt text.
	Prompt string

	// Capabilities overrides the capability set derived from the feature's
	// operation kind when non-empty.
	Capabilities CapabilitySet

	// Parts carries auxiliary payloads such as inline image data.
	Parts []Part

	// PreferredService is the slug to try first; empty means no preference.
	PreferredService string

	// ImageCount is the number of images requested for image generation.
	ImageCount int

	// AspectRatio is the requested image aspect ratio (e.g. "16:9").
	AspectRatio string
}

// GenerationResult is the normalized outcome of a successful generation.
// Exactly one of Text or Images is populated.
type GenerationResult struct {
	Text    string         `json:"text,omitempty"`
	Images  []ImagePayload `json:"images,omitempty"`
	Service string         `json:"service"`
	Model   string         `json:"model,omitempty"`
}

// IsEmpty reports whether the result carries no output, as for a
// short-circuited request with no prompt.
func (r GenerationResult) IsEmpty() bool {
	return r.Text == "" && len(r.Images) == 0
}
