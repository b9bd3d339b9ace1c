// Package batch tracks server-side bulk generation jobs.
//
// The queue itself runs on the content host. This package talks to its four
// endpoints per job kind (count, submit, run-queue, cancel) and keeps a
// client-side state machine per kind that polls until the queue drains.
//
// IMPORTANT: This package may import internal/constants, internal/errors,
// internal/domain, internal/clock and internal/ctxutil. It MUST NOT import
// internal/ai, internal/server, or internal/cli.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// QueueClient is the transport to the server-side batch queue.
type QueueClient interface {
	// Count fetches the current counters for a job kind.
	Count(ctx context.Context, kind domain.JobKind) (domain.BatchStatus, error)

	// Submit enqueues generation for every eligible item of a job kind.
	// An empty preferredService lets the server pick.
	Submit(ctx context.Context, kind domain.JobKind, preferredService string) error

	// RunQueue asks the server to start processing queued actions.
	RunQueue(ctx context.Context, kind domain.JobKind) error

	// Cancel asks the server to cancel pending actions for a job kind.
	Cancel(ctx context.Context, kind domain.JobKind) error
}

// HTTPClientOptions configures an HTTPQueueClient.
type HTTPClientOptions struct {
	// BaseURL is the queue root, e.g. https://example.com/wp-json/inkwell/v1/batch.
	BaseURL string

	// Nonce is passed through opaquely in NonceHeader on every request.
	Nonce       string
	NonceHeader string

	HTTPClient      *http.Client
	RequestTimeout  time.Duration
	RunQueueTimeout time.Duration
	Logger          zerolog.Logger
}

// HTTPQueueClient implements QueueClient over HTTP.
type HTTPQueueClient struct {
	baseURL         string
	nonce           string
	nonceHeader     string
	httpClient      *http.Client
	requestTimeout  time.Duration
	runQueueTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPQueueClient creates a queue client. The base URL is required.
func NewHTTPQueueClient(opts HTTPClientOptions) (*HTTPQueueClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, inkerrors.ErrBatchNotConfigured
	}
	c := &HTTPQueueClient{
		baseURL:         baseURL,
		nonce:           opts.Nonce,
		nonceHeader:     opts.NonceHeader,
		httpClient:      opts.HTTPClient,
		requestTimeout:  opts.RequestTimeout,
		runQueueTimeout: opts.RunQueueTimeout,
		logger:          opts.Logger.With().Str("component", "batch_client").Logger(),
	}
	if c.nonceHeader == "" {
		c.nonceHeader = constants.DefaultNonceHeader
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = constants.BatchRequestTimeout
	}
	if c.runQueueTimeout <= 0 {
		c.runQueueTimeout = constants.BatchRunQueueTimeout
	}
	return c, nil
}

// countPayload is the queue's count response.
type countPayload struct {
	Total   *int `json:"total"`
	Missing int  `json:"missing"`
	Actions struct {
		Total    int `json:"total"`
		Complete int `json:"complete"`
		Pending  int `json:"pending"`
		Running  int `json:"running"`
		Failed   int `json:"failed"`
	} `json:"actions"`
	// FailedItems maps item id to message. PHP encodes an empty map as [].
	FailedItems json.RawMessage `json:"failed_items"`
	LastService string          `json:"last_service"`
}

// Count implements QueueClient.
func (c *HTTPQueueClient) Count(ctx context.Context, kind domain.JobKind) (domain.BatchStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, kind, "count", nil)
	if err != nil {
		return domain.BatchStatus{}, err
	}

	var p countPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.BatchStatus{}, fmt.Errorf("%w: decode count for %s: %s", inkerrors.ErrBatchTransport, kind, err.Error())
	}
	return statusFromPayload(kind, p)
}

func statusFromPayload(kind domain.JobKind, p countPayload) (domain.BatchStatus, error) {
	if p.Total == nil {
		return domain.BatchStatus{}, fmt.Errorf("%w: count for %s has no total", inkerrors.ErrBatchTransport, kind)
	}
	items, err := decodeFailedItems(p.FailedItems)
	if err != nil {
		return domain.BatchStatus{}, fmt.Errorf("%w: failed items for %s: %s", inkerrors.ErrBatchTransport, kind, err.Error())
	}

	status := domain.BatchStatus{
		BatchCounts: domain.BatchCounts{
			TotalEligible:   *p.Total,
			TotalMissing:    p.Missing,
			ActionsTotal:    p.Actions.Total,
			ActionsComplete: p.Actions.Complete,
			ActionsPending:  p.Actions.Pending,
			ActionsRunning:  p.Actions.Running,
			ActionsFailed:   p.Actions.Failed,
		},
		FailedItems:     items,
		LastUsedService: p.LastService,
	}
	if !status.Consistent() {
		return domain.BatchStatus{}, fmt.Errorf("%w: inconsistent counters for %s", inkerrors.ErrBatchTransport, kind)
	}
	return status, nil
}

// decodeFailedItems accepts an id->message object, an empty array, or null.
// Items come back sorted by id; blank messages become "Unknown".
func decodeFailedItems(raw json.RawMessage) ([]domain.FailedItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		return []domain.FailedItem{}, nil
	}

	var byID map[string]*string
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, err
	}

	items := make([]domain.FailedItem, 0, len(byID))
	for id, msg := range byID {
		item := domain.FailedItem{ID: id, Message: constants.UnknownFailureMessage}
		if msg != nil && strings.TrimSpace(*msg) != "" {
			item.Message = *msg
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

type submitBody struct {
	PreferredService string `json:"preferred_service,omitempty"`
}

// Submit implements QueueClient.
func (c *HTTPQueueClient) Submit(ctx context.Context, kind domain.JobKind, preferredService string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, kind, "submit", submitBody{PreferredService: preferredService})
	return err
}

// RunQueue implements QueueClient. It is bounded by the shorter run-queue timeout.
func (c *HTTPQueueClient) RunQueue(ctx context.Context, kind domain.JobKind) error {
	ctx, cancel := context.WithTimeout(ctx, c.runQueueTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, kind, "run-queue", nil)
	return err
}

// Cancel implements QueueClient.
func (c *HTTPQueueClient) Cancel(ctx context.Context, kind domain.JobKind) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, kind, "cancel", nil)
	return err
}

func (c *HTTPQueueClient) do(ctx context.Context, method string, kind domain.JobKind, action string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", action, err)
		}
		reader = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, action)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s request: %s", inkerrors.ErrBatchTransport, action, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.nonce != "" {
		req.Header.Set(c.nonceHeader, c.nonce)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %s", inkerrors.ErrBatchTransport, action, kind, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.BatchMaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %s", inkerrors.ErrBatchTransport, action, err.Error())
	}
	if len(body) > constants.BatchMaxResponseBytes {
		return nil, fmt.Errorf("%w: %s %s: response exceeds %d bytes", inkerrors.ErrBatchTransport, action, kind, constants.BatchMaxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().
			Str("action", action).
			Str("kind", kind.String()).
			Int("status", resp.StatusCode).
			Msg("batch queue request failed")
		return nil, fmt.Errorf("%w: %s %s: status %d", inkerrors.ErrBatchTransport, action, kind, resp.StatusCode)
	}
	return body, nil
}

var _ QueueClient = (*HTTPQueueClient)(nil)
