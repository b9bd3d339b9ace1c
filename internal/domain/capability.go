package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Capability is an ability a backend AI service must support.
// The set is closed; provider capability strings are mapped with
// ParseCapability where they enter the system.
type Capability uint8

// Capability constants.
const (
	CapabilityTextGeneration Capability = 1 << iota
	CapabilityMultimodalInput
	CapabilityImageGeneration
)

// allCapabilities lists capabilities in canonical order.
var allCapabilities = []Capability{ //nolint:gochecknoglobals // closed set
	CapabilityTextGeneration,
	CapabilityMultimodalInput,
	CapabilityImageGeneration,
}

// String returns the boundary name of the capability.
func (c Capability) String() string {
	switch c {
	case CapabilityTextGeneration:
		return "text_generation"
	case CapabilityMultimodalInput:
		return "multimodal_input"
	case CapabilityImageGeneration:
		return "image_generation"
	default:
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
}

// ParseCapability maps a provider or config capability string onto the closed set.
// Short aliases (text, vision, image) are accepted.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text_generation", "text":
		return CapabilityTextGeneration, nil
	case "multimodal_input", "multimodal", "vision":
		return CapabilityMultimodalInput, nil
	case "image_generation", "image":
		return CapabilityImageGeneration, nil
	}
	return 0, fmt.Errorf("%w: %q", inkerrors.ErrUnknownCapability, s)
}

// CapabilitySet is a set of capabilities stored as a bitmask.
type CapabilitySet uint8

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s = s.Add(c)
	}
	return s
}

// ParseCapabilitySet maps a list of capability strings onto a set.
func ParseCapabilitySet(names []string) (CapabilitySet, error) {
	var s CapabilitySet
	for _, n := range names {
		c, err := ParseCapability(n)
		if err != nil {
			return 0, err
		}
		s = s.Add(c)
	}
	return s, nil
}

// Add returns a copy of s with c included.
func (s CapabilitySet) Add(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Covers reports whether s is a superset of required.
func (s CapabilitySet) Covers(required CapabilitySet) bool {
	return s&required == required
}

// IsEmpty reports whether the set has no capabilities.
func (s CapabilitySet) IsEmpty() bool {
	return s == 0
}

// Slice returns the capabilities in canonical order.
func (s CapabilitySet) Slice() []Capability {
	out := make([]Capability, 0, len(allCapabilities))
	for _, c := range allCapabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Strings returns the boundary names of the capabilities in canonical order.
func (s CapabilitySet) Strings() []string {
	caps := s.Slice()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.String()
	}
	return out
}

// String implements fmt.Stringer.
func (s CapabilitySet) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}

// MarshalJSON encodes the set as a list of boundary names.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a list of capability names.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParseCapabilitySet(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
