package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// Leaf sentinels are listed before their category so errors.Is() picks the most
// specific entry first.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Prompt Composition
	// ===================
	{
		err: ErrMissingToken,
		info: ErrorInfo{
			Message: "The prompt template references a placeholder that was not supplied.",
			Action:  "Pass every placeholder the template uses, e.g. --token number=5.",
		},
	},
	{
		err: ErrEmptyContent,
		info: ErrorInfo{
			Message: "This feature needs content to work from, but none was provided.",
			Action:  "Provide the source content with --content or --content-file.",
		},
	},
	{
		err: ErrInvalidToken,
		info: ErrorInfo{
			Message: "A placeholder value is not usable for this feature.",
			Action:  "Pass a whole number for the image count, e.g. --token number=2.",
		},
	},
	{
		err: ErrComposition,
		info: ErrorInfo{
			Message: "The prompt could not be composed.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrFeatureDisabled,
		info: ErrorInfo{
			Message: "This feature is disabled in the prompt settings.",
			Action:  "Enable it with 'inkwell features enable <feature>'.",
		},
	},
	{
		err: ErrUnknownFeature,
		info: ErrorInfo{
			Message: "Unknown feature.",
			Action:  "List supported features with 'inkwell features list'.",
		},
	},
	{
		err: ErrUnknownJobKind,
		info: ErrorInfo{
			Message: "Unknown batch job kind.",
			Action:  "Use one of: image_alt_text, seo_title, seo_meta_description.",
		},
	},
	{
		err: ErrUnknownOperation,
		info: ErrorInfo{
			Message: "The requested operation is not supported.",
		},
	},
	{
		err: ErrUnknownCapability,
		info: ErrorInfo{
			Message: "A configured service declares an unknown capability.",
			Action:  "Use text, image or vision in the services section of your config.",
		},
	},
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "No configuration was loaded.",
		},
	},
	{
		err: ErrConfiguration,
		info: ErrorInfo{
			Message: "The configuration is invalid.",
			Action:  "Review your config with 'inkwell config show'.",
		},
	},

	// ===================
	// AI Services
	// ===================
	{
		err: ErrNoServiceAvailable,
		info: ErrorInfo{
			Message: "No AI service is available for this request.",
			Action:  "Configure a service that supports the required capabilities, then try again.",
		},
	},
	{
		err: ErrServiceNotFound,
		info: ErrorInfo{
			Message: "The specified AI service is not registered.",
			Action:  "Check available services with 'inkwell services'.",
		},
	},
	{
		err: ErrBackendUnavailable,
		info: ErrorInfo{
			Message: "The AI backend is not ready.",
			Action:  "Wait a moment and try again.",
		},
	},
	{
		err: ErrInvalidModel,
		info: ErrorInfo{
			Message: "The selected service has no model that supports this request.",
			Action:  "Pick a different service or add a suitable model to its configuration.",
		},
	},
	{
		err: ErrEmptyResponse,
		info: ErrorInfo{
			Message: "The AI returned an empty response.",
			Action:  "Try again. If the issue persists, check your API key and quota.",
		},
	},

	// ===================
	// Batch Jobs
	// ===================
	{
		err: ErrBatchTransport,
		info: ErrorInfo{
			Message: "Could not reach the batch queue.",
			Action:  "Check the queue base URL and nonce, then try again.",
		},
	},
	{
		err: ErrBatchNotConfigured,
		info: ErrorInfo{
			Message: "The batch queue endpoint is not configured.",
			Action:  "Set batch.base_url in your config or INKWELL_BATCH_BASE_URL.",
		},
	},

	// ===================
	// CLI
	// ===================
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "Configuration file not found.",
			Action:  "Create ~/.inkwell/config.yaml or pass --config.",
		},
	},
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation canceled.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// Provider errors surface the backend message unmodified.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return ErrorInfo{
			Message: "The AI service returned an error: " + pe.Message,
			Action:  "Review the provider message above. Check your API key, quota, and model.",
		}
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that have no clear action, the action string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
