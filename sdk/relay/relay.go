// Package relay implements the approval-service client. The service speaks
// a small JSON API: bundles are content-addressed blobs, proposal requests
// reference them by content id.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

const (
	bundlesPath   = "/v1/bundles"
	proposalsPath = "/v1/proposals"

	defaultTimeout = 30 * time.Second
)

// HTTPRelayer should comply with the Relayer interface
var _ sdk.Relayer = (*HTTPRelayer)(nil)

// HTTPRelayer submits assembled proposals to the approval service over its
// JSON API.
type HTTPRelayer struct {
	baseURL string
	client  *resty.Client
}

// Option configures an HTTPRelayer.
type Option func(*HTTPRelayer)

// WithAuthToken sets a bearer token on every request.
func WithAuthToken(token string) Option {
	return func(r *HTTPRelayer) {
		r.client.SetAuthToken(token)
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *HTTPRelayer) {
		r.client.SetTimeout(timeout)
	}
}

// NewHTTPRelayer creates a relayer talking to the approval service at
// baseURL.
func NewHTTPRelayer(baseURL string, opts ...Option) *HTTPRelayer {
	r := &HTTPRelayer{
		baseURL: baseURL,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type storeResponse struct {
	ContentID string `json:"contentId"`
}

// Store uploads the serialized bundle and returns the content id the
// service addressed it under.
func (r *HTTPRelayer) Store(ctx context.Context, blob []byte) (string, error) {
	var result storeResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(blob).
		SetResult(&result).
		Post(bundlesPath)
	if err != nil {
		return "", fmt.Errorf("store bundle blob: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("store bundle blob: %s returned %s", r.baseURL, resp.Status())
	}
	if result.ContentID == "" {
		return "", fmt.Errorf("store bundle blob: %s returned no content id", r.baseURL)
	}

	return result.ContentID, nil
}

// Relay submits the proposal request for multi-party approval.
func (r *HTTPRelayer) Relay(ctx context.Context, request *types.ProposalRequest) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(request).
		Post(proposalsPath)
	if err != nil {
		return fmt.Errorf("relay proposal request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("relay proposal request: %s returned %s", r.baseURL, resp.Status())
	}

	return nil
}
