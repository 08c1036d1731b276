package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/models"
)

const maxErrorBody = 512

// HTTPError is any non-2xx response. Code and Message come from the JSON
// body when it has one; otherwise Message holds the raw body text. Current
// and Required are set on insufficient-credit rejections.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Current    *int64
	Required   *int64
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// InsufficientCredits reports whether the server refused for lack of credits.
func (e *HTTPError) InsufficientCredits() bool {
	return e.StatusCode == http.StatusPaymentRequired
}

// bodyDecodeError is a 2xx response whose body could not be decoded.
type bodyDecodeError struct {
	StatusCode int
	Err        error
}

func (e *bodyDecodeError) Error() string {
	return fmt.Sprintf("http %d: decode response: %v", e.StatusCode, e.Err)
}

func (e *bodyDecodeError) Unwrap() error {
	return e.Err
}

// CreateResult is the decoded 2xx creation response. CreditsRemaining is nil
// when the server did not report a balance.
type CreateResult struct {
	Creation         models.Creation `json:"creation"`
	CreditsRemaining *int64          `json:"credits_remaining"`
	Duplicate        bool            `json:"duplicate"`
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewHTTPClient(baseURL, apiKey string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

// CreateCreation issues the creation request once. It is never retried here:
// retrying is the caller's decision, made with the same token.
func (c *HTTPClient) CreateCreation(ctx context.Context, req models.CreationRequest) (CreateResult, error) {
	var out CreateResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/creations", req, &out, 0)
	var decodeErr *bodyDecodeError
	if errors.As(err, &decodeErr) {
		// The record was created; only the optional balance is lost.
		return CreateResult{}, nil
	}
	return out, err
}

// ListCreations returns the authoritative records, newest first.
func (c *HTTPClient) ListCreations(ctx context.Context, limit int) ([]models.Creation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/v1/creations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out models.ListCreationsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, c.maxRetries); err != nil {
		return nil, err
	}
	return out.Creations, nil
}

func (c *HTTPClient) Balance(ctx context.Context) (int64, error) {
	var out models.CreditsResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/credits", nil, &out, c.maxRetries)
	return out.Balance, err
}

// PostBeacon sends req the way a page-unload beacon does: a text/plain POST
// with the key in the query string and the response body discarded.
func (c *HTTPClient) PostBeacon(ctx context.Context, req models.CreationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/creations?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp.StatusCode, payload)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body, out any, maxRetries int) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return nil
			}
			if err := json.Unmarshal(payloadBytes, out); err != nil {
				return &bodyDecodeError{StatusCode: resp.StatusCode, Err: err}
			}
			return nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < maxRetries {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
				return waitErr
			}
			continue
		}

		return parseHTTPError(resp.StatusCode, payloadBytes)
	}
}

// parseHTTPError tolerates empty and non-JSON bodies.
func parseHTTPError(status int, payload []byte) *HTTPError {
	out := &HTTPError{StatusCode: status}
	var errPayload struct {
		Error    string `json:"error"`
		Message  string `json:"message"`
		Current  *int64 `json:"current"`
		Required *int64 `json:"required"`
	}
	if err := json.Unmarshal(payload, &errPayload); err != nil {
		text := strings.TrimSpace(string(payload))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		if text == "" {
			text = http.StatusText(status)
		}
		out.Message = text
		return out
	}
	out.Code = errPayload.Error
	out.Message = errPayload.Message
	if out.Message == "" {
		out.Message = errPayload.Error
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	out.Current = errPayload.Current
	out.Required = errPayload.Required
	return out
}

func (c *HTTPClient) retryDelay(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	if delay > c.maxDelay || delay <= 0 {
		delay = c.maxDelay
	}
	return delay
}

func waitWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AsHTTPError unwraps err into an *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
