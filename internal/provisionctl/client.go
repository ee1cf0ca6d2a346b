package provisionctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rservers/RightClaw-Build/internal/api/response"
)

// Client talks to a running event API the same way the billing hook does.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendEvent posts a raw hook payload to /api/v1/events/{kind}. A nil
// WorkflowStarted with no error means the API ignored the event (204).
func (c *Client) SendEvent(kind string, payload []byte) (*response.WorkflowStarted, error) {
	resp, err := c.do(http.MethodPost, "/api/v1/events/"+kind, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	var started response.WorkflowStarted
	if err := json.Unmarshal(resp.Body, &started); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &started, nil
}

func (c *Client) do(method, path string, body []byte) (*Response, error) {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Body:       json.RawMessage(respBody),
	}

	if resp.StatusCode >= 400 {
		return r, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	return r, nil
}
