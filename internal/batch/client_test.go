package batch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPQueueClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewHTTPQueueClient(HTTPClientOptions{
		BaseURL:    srv.URL + "/batch/",
		Nonce:      "nonce-123",
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestHTTPQueueClient_Count(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/batch/image_alt_text/count", r.URL.Path)
		assert.Equal(t, "nonce-123", r.Header.Get("X-WP-Nonce"))
		_, _ = w.Write([]byte(`{
			"total": 120, "missing": 40,
			"actions": {"total": 40, "complete": 30, "pending": 2, "running": 5, "failed": 3},
			"failed_items": {"17": "Image too large", "9": "", "3": null},
			"last_service": "gemini"
		}`))
	})

	status, err := c.Count(context.Background(), domain.JobKindImageAltText)
	require.NoError(t, err)
	assert.Equal(t, 120, status.TotalEligible)
	assert.Equal(t, 40, status.TotalMissing)
	assert.Equal(t, 40, status.ActionsTotal)
	assert.Equal(t, 30, status.ActionsComplete)
	assert.Equal(t, "gemini", status.LastUsedService)
	assert.Equal(t, []domain.FailedItem{
		{ID: "17", Message: "Image too large"},
		{ID: "3", Message: "Unknown"},
		{ID: "9", Message: "Unknown"},
	}, status.FailedItems)
}

func TestHTTPQueueClient_CountEmptyFailedItems(t *testing.T) {
	for _, raw := range []string{`[]`, `null`, `{}`} {
		t.Run(raw, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"total": 5, "missing": 0, "actions": {}, "failed_items": ` + raw + `}`))
			})
			status, err := c.Count(context.Background(), domain.JobKindSEOTitle)
			require.NoError(t, err)
			assert.NotNil(t, status.FailedItems)
			assert.Empty(t, status.FailedItems)
		})
	}
}

func TestHTTPQueueClient_CountMalformed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing total", status: http.StatusOK, body: `{"missing": 1}`},
		{name: "inconsistent counters", status: http.StatusOK, body: `{"total": 1, "actions": {"total": 10, "complete": 1}}`},
		{name: "failed items wrong shape", status: http.StatusOK, body: `{"total": 1, "failed_items": "oops"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "forbidden nonce", status: http.StatusForbidden, body: `{"code":"rest_cookie_invalid_nonce"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Count(context.Background(), domain.JobKindSEOTitle)
			require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
		})
	}
}

func TestHTTPQueueClient_CountOversizedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total": 1, "missing": 0, "pad": "`))
		_, _ = w.Write([]byte(strings.Repeat("x", constants.BatchMaxResponseBytes)))
		_, _ = w.Write([]byte(`"}`))
	})
	_, err := c.Count(context.Background(), domain.JobKindSEOTitle)
	require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
	assert.Contains(t, err.Error(), "response exceeds")
}

func TestHTTPQueueClient_Actions(t *testing.T) {
	var seen []string
	var submitted submitBody
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		seen = append(seen, r.URL.Path)
		if r.URL.Path == "/batch/seo_title/submit" {
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.NoError(t, json.Unmarshal(body, &submitted))
		}
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	require.NoError(t, c.Submit(ctx, domain.JobKindSEOTitle, "openai"))
	require.NoError(t, c.RunQueue(ctx, domain.JobKindSEOTitle))
	require.NoError(t, c.Cancel(ctx, domain.JobKindSEOTitle))

	assert.Equal(t, []string{
		"/batch/seo_title/submit",
		"/batch/seo_title/run-queue",
		"/batch/seo_title/cancel",
	}, seen)
	assert.Equal(t, "openai", submitted.PreferredService)
}

func TestHTTPQueueClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewHTTPQueueClient(HTTPClientOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	err = c.Submit(context.Background(), domain.JobKindSEOTitle, "")
	require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
}

func TestNewHTTPQueueClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPQueueClient(HTTPClientOptions{BaseURL: "  "})
	require.ErrorIs(t, err, inkerrors.ErrBatchNotConfigured)
}
