package ai

import (
	"fmt"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// RequiredCapabilities returns the capability set an operation kind needs.
func RequiredCapabilities(op domain.OperationKind) (domain.CapabilitySet, error) {
	switch op {
	case domain.OperationText:
		return domain.NewCapabilitySet(domain.CapabilityTextGeneration), nil
	case domain.OperationAltTextFromImage:
		return domain.NewCapabilitySet(domain.CapabilityMultimodalInput, domain.CapabilityTextGeneration), nil
	case domain.OperationImageGeneration:
		return domain.NewCapabilitySet(domain.CapabilityImageGeneration), nil
	}
	return 0, fmt.Errorf("%w: %q", inkerrors.ErrUnknownOperation, op)
}

// capabilitiesFor returns the explicit capabilities of req when set, otherwise
// the capabilities of the feature's operation. Auxiliary parts always add
// multimodal input.
func capabilitiesFor(req domain.GenerationRequest) (domain.CapabilitySet, error) {
	caps := req.Capabilities
	if caps.IsEmpty() {
		var err error
		caps, err = RequiredCapabilities(req.Feature.Operation())
		if err != nil {
			return 0, err
		}
	}
	if len(req.Parts) > 0 {
		caps = caps.Add(domain.CapabilityMultimodalInput)
	}
	return caps, nil
}

// operationFor picks the operation reported to the backend for a capability set.
func operationFor(caps domain.CapabilitySet) domain.OperationKind {
	switch {
	case caps.Has(domain.CapabilityImageGeneration):
		return domain.OperationImageGeneration
	case caps.Has(domain.CapabilityMultimodalInput):
		return domain.OperationAltTextFromImage
	default:
		return domain.OperationText
	}
}
