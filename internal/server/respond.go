package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

var errInvalidPayload = errors.New("invalid payload")

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorPayload struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, action string) {
	writeJSON(w, status, errorPayload{
		Error:     errorBody{Code: code, Message: message, Action: action},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// writeValidationError reports struct validation failures per JSON field.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Code: "invalid_request", Message: "validation failed"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fe.Tag()
		}
	}
	writeJSON(w, http.StatusBadRequest, errorPayload{Error: body, RequestID: RequestIDFromContext(r.Context())})
}

// writeDomainError maps an orchestration error onto a status and a
// user-facing message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message, action := inkerrors.Actionable(err)
	writeError(w, r, status, code, message, action)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, inkerrors.ErrFeatureDisabled):
		return http.StatusUnprocessableEntity, "feature_disabled"
	case errors.Is(err, inkerrors.ErrComposition):
		return http.StatusUnprocessableEntity, "composition_failed"
	case errors.Is(err, inkerrors.ErrUnknownFeature):
		return http.StatusBadRequest, "unknown_feature"
	case errors.Is(err, inkerrors.ErrUnknownJobKind):
		return http.StatusBadRequest, "unknown_job_kind"
	case errors.Is(err, inkerrors.ErrConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, inkerrors.ErrResolution):
		return http.StatusServiceUnavailable, "no_service_available"
	case errors.Is(err, inkerrors.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, inkerrors.ErrBatchNotConfigured):
		return http.StatusServiceUnavailable, "batch_not_configured"
	case errors.Is(err, inkerrors.ErrInvalidModel):
		return http.StatusServiceUnavailable, "invalid_model"
	case errors.Is(err, inkerrors.ErrProviderError):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, inkerrors.ErrBatchTransport):
		return http.StatusBadGateway, "batch_transport_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON decodes a request body strictly. An empty body decodes to the
// zero value when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, value any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return errInvalidPayload
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidPayload
	}
	return nil
}

// maxBodyBytes bounds request bodies; inline image parts make them large.
const maxBodyBytes = 20 << 20
