// Package generation wraps the call to the external LLM middleware service.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// ErrUnavailable covers every failed generation outcome: transport errors,
// non-2xx statuses, and unusable response bodies. Callers recover the same
// way regardless of the sub-cause, so it is not broken down further.
var ErrUnavailable = errors.New("generation unavailable")

// Request carries one prompt to the LLM service.
type Request struct {
	UserID     string
	SessionID  string
	Prompt     string
	NewSession bool
}

// Result is a successful generation. Extra holds any response fields beyond
// the reply and title, forwarded to the caller untouched.
type Result struct {
	Reply string
	Title string
	Extra map[string]any
}

// Client performs single synchronous round trips to the LLM endpoint. No
// retry is attempted here.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a generation client for the given endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wireRequest struct {
	Prompt     string `json:"prompt"`
	NewSession bool   `json:"new"`
	UserID     string `json:"userId"`
	SessionID  string `json:"sessionId"`
}

// Generate posts the prompt and decodes the reply. The service answers with
// {"response": ..., "title": ...} plus arbitrary extra fields such as
// replacement_parts and car_model; extras pass through in Result.Extra.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(wireRequest{
		Prompt:     req.Prompt,
		NewSession: req.NewSession,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("[generation] request failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[generation] unexpected status %d from %s", resp.StatusCode, c.url)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		log.Printf("[generation] malformed response body: %v", err)
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	reply, ok := fields["response"].(string)
	if !ok || reply == "" {
		log.Printf("[generation] response field missing or empty")
		return nil, fmt.Errorf("%w: missing response field", ErrUnavailable)
	}
	delete(fields, "response")

	result := &Result{Reply: reply}
	if title, ok := fields["title"].(string); ok {
		result.Title = title
		delete(fields, "title")
	}
	if len(fields) > 0 {
		result.Extra = fields
	}

	return result, nil
}
