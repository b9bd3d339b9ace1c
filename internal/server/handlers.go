package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/batch"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/prompts"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var in ai.GenerateInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", "")
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeValidationError(w, r, err)
		return
	}

	result, err := s.generator.ComposeAndGenerate(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) images(w http.ResponseWriter, r *http.Request) {
	var in ai.ImageInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", "")
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeValidationError(w, r, err)
		return
	}

	result, err := s.generator.GenerateImages(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) services(w http.ResponseWriter, r *http.Request) {
	services, err := s.generator.Services(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// featureView is one catalog entry as served to the editor.
type featureView struct {
	Feature         domain.Feature       `json:"feature"`
	Operation       domain.OperationKind `json:"operation"`
	Enabled         bool                 `json:"enabled"`
	RequiresContent bool                 `json:"requires_content"`
	Tokens          []string             `json:"tokens"`
	HasOverride     bool                 `json:"has_override"`
}

func (s *Server) features(w http.ResponseWriter, r *http.Request) {
	snap, err := s.generator.Settings(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	defs := prompts.List()
	views := make([]featureView, 0, len(defs))
	for _, def := range defs {
		fs := snap.Feature(def.Feature)
		tokens := def.Tokens
		if tokens == nil {
			tokens = []string{}
		}
		views = append(views, featureView{
			Feature:         def.Feature,
			Operation:       def.Feature.Operation(),
			Enabled:         fs.IsEnabled(),
			RequiresContent: def.RequiresContent,
			Tokens:          tokens,
			HasOverride:     fs.Override != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"features": views})
}

// batchView adds derived progress to a snapshot.
type batchView struct {
	domain.BatchJob

	CompletionRatio float64 `json:"completion_ratio"`
}

func newBatchView(job domain.BatchJob) batchView {
	return batchView{BatchJob: job, CompletionRatio: job.CompletionRatio()}
}

// batchKind parses the {kind} route parameter and checks a tracker exists.
func (s *Server) batchKind(w http.ResponseWriter, r *http.Request) (domain.JobKind, bool) {
	if s.tracker == nil {
		writeDomainError(w, r, inkerrors.ErrBatchNotConfigured)
		return "", false
	}
	kind, err := domain.ParseJobKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, r, err)
		return "", false
	}
	return kind, true
}

func (s *Server) batchStatus(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.batchKind(w, r)
	if !ok {
		return
	}
	job, err := s.tracker.Poll(r.Context(), kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchView(job))
}

type startRequest struct {
	PreferredService string `json:"preferred_service"`
}

func (s *Server) batchStart(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.batchKind(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", "")
		return
	}

	job, err := s.tracker.Start(r.Context(), kind, batch.StartOptions{PreferredService: req.PreferredService})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBatchView(job))
}

func (s *Server) batchCancel(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.batchKind(w, r)
	if !ok {
		return
	}
	job, err := s.tracker.Cancel(r.Context(), kind)
	if err != nil {
		if errors.Is(err, inkerrors.ErrBatchTransport) {
			s.logger.Warn().Err(err).Str("kind", kind.String()).Msg("batch cancel failed")
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBatchView(job))
}
