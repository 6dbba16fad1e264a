package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-shade/internal/httpc"
)

// transport is the JSON-over-HTTP plumbing shared by every provider:
// marshal, post, retry on 429/5xx, decode.
type transport struct {
	provider string
	baseURL  string
	config   *Config
	http     *http.Client
	logger   *slog.Logger

	// header decorates each request with provider auth.
	header func(h http.Header)

	// parseError turns a non-2xx body into an error message and code.
	parseError func(body []byte) (message, code string)
}

func newTransport(provider string, cfg *Config) transport {
	return transport{
		provider: provider,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		config:   cfg,
		http:     httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", "inference."+provider),
		header:   func(http.Header) {},
	}
}

// postJSON posts payload to path and decodes a 200 response into out.
func (t *transport) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return WrapError(t.provider, fmt.Errorf("marshal payload: %w", err))
	}

	resp, err := t.doWithRetry(ctx, http.MethodPost, t.baseURL+path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapError(t.provider, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// get performs a GET against path and discards the body.
func (t *transport) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return WrapError(t.provider, fmt.Errorf("create request: %w", err))
	}
	t.header(req.Header)

	resp, err := t.http.Do(req)
	if err != nil {
		return WrapError(t.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return t.apiError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// doWithRetry performs the request, retrying transport failures and
// retryable statuses with linear backoff.
func (t *transport) doWithRetry(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(t.provider, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		t.header(req.Header)

		resp, err := t.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(t.provider, err)
			t.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		apiErr := t.apiError(resp)
		resp.Body.Close()
		if !apiErr.IsRetryable() {
			return nil, apiErr
		}
		lastErr = apiErr
		t.logger.Warn("retrying request",
			"attempt", attempt+1,
			"status", apiErr.StatusCode,
		)
	}

	return nil, lastErr
}

// apiError reads a failed response into an APIError.
func (t *transport) apiError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)

	message, code := strings.TrimSpace(string(body)), ""
	if t.parseError != nil {
		if m, c := t.parseError(body); m != "" {
			message, code = m, c
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   t.provider,
	}
}

func (t *transport) close() {
	t.http.CloseIdleConnections()
}
