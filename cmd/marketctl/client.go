package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	markethttp "emporium/contexts/trading/nft-marketplace/transport/http"

	"github.com/hashicorp/go-retryablehttp"
)

const callerHeader = "X-Caller-Address"

// apiClient calls the marketplace HTTP API. Connection errors and 5xx
// responses (including lock_unavailable) are retried.
type apiClient struct {
	baseURL string
	http    *retryablehttp.Client
}

func newAPIClient(baseURL string, retryMax int) *apiClient {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

type apiError struct {
	Status int
	Body   markethttp.ErrorResponse
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Body.Code, e.Body.Message)
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, "", nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, caller string, body any, out any) error {
	return c.do(ctx, http.MethodPost, c.baseURL+path, caller, body, out)
}

func (c *apiClient) do(ctx context.Context, method string, target string, caller string, body any, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = raw
	}
	req, err := retryablehttp.NewRequest(method, target, payload)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, &apiErr.Body); err != nil {
			apiErr.Body.Message = string(bytes.TrimSpace(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
