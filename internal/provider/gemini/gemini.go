// Package gemini implements an ai.Backend over the Gemini generateContent REST API.
// It supports text generation, multimodal input (inline or file-referenced
// parts), and image generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// apiKeyHeader carries the API key so it never appears in request URLs.
const apiKeyHeader = "x-goog-api-key" //nolint:gosec // header name, not a credential

// Options controls how the Gemini backend is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Backend talks to Gemini over HTTP.
type Backend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New constructs a Gemini backend. A nil HTTP client gets a default one.
func New(opts Options) *Backend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Backend{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     opts.Logger.With().Str("component", "gemini").Logger(),
	}
}

// Available reports whether an API key is configured.
func (b *Backend) Available(context.Context) bool {
	return b.apiKey != ""
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generationConfig struct {
	CandidateCount     int          `json:"candidateCount,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// Generate implements ai.Backend.
func (b *Backend) Generate(ctx context.Context, call *ai.Call) (*ai.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.Model == "" {
		return nil, fmt.Errorf("%w: gemini model is required", inkerrors.ErrInvalidModel)
	}

	payload := buildRequest(call)

	var out generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(call.Model))
	if err := b.invoke(ctx, path, payload, &out); err != nil {
		return nil, err
	}

	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return nil, inkerrors.NewProviderError("", "prompt blocked: "+out.PromptFeedback.BlockReason)
		}
		return &ai.Response{}, nil
	}

	resp, err := convertResponse(out)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("request_id", call.RequestID).
		Str("model", call.Model).
		Int("candidates", len(out.Candidates)).
		Int("parts", len(resp.Parts)).
		Msg("gemini response received")
	return resp, nil
}

func buildRequest(call *ai.Call) generateContentRequest {
	parts := make([]part, 0, len(call.Parts)+1)
	parts = append(parts, part{Text: call.Prompt})
	for _, p := range call.Parts {
		parts = append(parts, toPart(p))
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if call.Operation == domain.OperationImageGeneration {
		cfg := &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
		if call.ImageCount > 1 {
			cfg.CandidateCount = call.ImageCount
		}
		if call.AspectRatio != "" {
			cfg.ImageConfig = &imageConfig{AspectRatio: call.AspectRatio}
		}
		req.GenerationConfig = cfg
	}
	return req
}

func toPart(p domain.Part) part {
	if p.IsInline() {
		return part{InlineData: &inlineData{
			MimeType: p.MimeType,
			Data:     base64.StdEncoding.EncodeToString(p.Data),
		}}
	}
	return part{FileData: &fileData{MimeType: p.MimeType, FileURI: p.URI}}
}

func convertResponse(out generateContentResponse) (*ai.Response, error) {
	resp := &ai.Response{}
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			switch {
			case p.InlineData != nil && p.InlineData.Data != "":
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, inkerrors.NewProviderError("", "invalid inline data: "+err.Error())
				}
				resp.Parts = append(resp.Parts, ai.ResponsePart{MimeType: p.InlineData.MimeType, Data: data})
			case p.FileData != nil && p.FileData.FileURI != "":
				resp.Parts = append(resp.Parts, ai.ResponsePart{MimeType: p.FileData.MimeType, FileURI: p.FileData.FileURI})
			case p.Text != "":
				resp.Parts = append(resp.Parts, ai.ResponsePart{Text: p.Text})
			}
		}
	}
	return resp, nil
}

func (b *Backend) invoke(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set(apiKeyHeader, b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return inkerrors.NewProviderError("", "request failed: "+err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return inkerrors.NewProviderError("", "read response: "+err.Error())
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return inkerrors.NewProviderError("", apiErr.Error.Message)
		}
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return inkerrors.NewProviderError("", fmt.Sprintf("status %d: %s", resp.StatusCode, msg))
		}
		return inkerrors.NewProviderError("", fmt.Sprintf("status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return inkerrors.NewProviderError("", "decode response: "+err.Error())
	}
	return nil
}

// Compile-time checks.
var (
	_ ai.Backend              = (*Backend)(nil)
	_ ai.AvailabilityReporter = (*Backend)(nil)
)
