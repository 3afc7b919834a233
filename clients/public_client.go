package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joy095/academy/logger"
)

const DefaultPublicTimeout = 15 * time.Second

// PublicClient talks to the anonymous part of the backend. It never sends
// credentials and never reacts to auth failures beyond returning them.
type PublicClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewPublicClient creates a client rooted at backendURL+basePath.
func NewPublicClient(backendURL, basePath string, timeout time.Duration) *PublicClient {
	if timeout <= 0 {
		timeout = DefaultPublicTimeout
	}
	return &PublicClient{
		BaseURL:    joinURL(backendURL, basePath),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Do sends a JSON request and decodes the response into out (which may be nil).
func (c *PublicClient) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	req, err := newRequest(ctx, method, joinURL(c.BaseURL, path), body, true)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		opt(req)
	}
	req.Header.Del("Authorization")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.ErrorLogger.Errorf("Public API %s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return readResponse(resp, out)
}
