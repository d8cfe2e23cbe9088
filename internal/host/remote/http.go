package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/linsmod/webf/internal/wire"
)

// ExchangePath is the host server's envelope endpoint.
const ExchangePath = "/v1/exchange"

// HTTP posts each envelope to the host server. Failed posts are retried;
// the host skips records it has already applied, so a retried flush is
// applied once.
type HTTP struct {
	client *resty.Client
	retry  *retryablehttp.Client
}

// NewHTTP creates a transport for baseURL, e.g. "http://localhost:8000".
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "webf-bridge/1.0")

	return &HTTP{client: client, retry: retryClient}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) RoundTrip(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	data, err := wire.Marshal(env)
	if err != nil {
		return wire.Envelope{}, err
	}
	req := h.client.R().SetContext(ctx).SetBody(data)
	if env.TraceID != "" {
		req.SetHeader("X-Trace-ID", env.TraceID)
	}
	resp, err := req.Post(ExchangePath)
	if err != nil {
		return wire.Envelope{}, err
	}
	if resp.IsError() {
		return wire.Envelope{}, fmt.Errorf("exchange: %s", resp.Status())
	}
	return wire.Unmarshal(resp.Body())
}

func (h *HTTP) Close() error {
	h.retry.HTTPClient.CloseIdleConnections()
	return nil
}
