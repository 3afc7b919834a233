package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/session_models"
)

// CredentialSink wipes stored credentials when the backend rejects a token.
type CredentialSink interface {
	ClearCredentials(ctx context.Context, sessionID string) error
}

// APIClient is the authenticated client. It attaches the session's bearer token and
// treats any 401 as the end of the session.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Sessions   CredentialSink
}

// NewAPIClient creates an authenticated client for baseURL (e.g. http://backend/api).
func NewAPIClient(baseURL string, timeout time.Duration, sessions CredentialSink) *APIClient {
	return &APIClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Sessions:   sessions,
	}
}

// Do sends the request and decodes the response into out (which may be nil).
// body may be nil, a *Multipart, or any JSON-encodable value.
func (c *APIClient) Do(ctx context.Context, sess *session_models.Session, method, path string, body, out any, opts ...RequestOption) error {
	req, err := newRequest(ctx, method, joinURL(c.BaseURL, path), body, false)
	if err != nil {
		return err
	}
	if sess != nil {
		if sess.Token != "" {
			req.Header.Set("Authorization", "Bearer "+sess.Token)
		}
		req.Header.Set("X-Session-ID", sess.ID)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.ErrorLogger.Errorf("API %s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.dropCredentials(ctx, sess)
		return ErrUnauthorized
	}

	return readResponse(resp, out)
}

func (c *APIClient) dropCredentials(ctx context.Context, sess *session_models.Session) {
	if sess == nil {
		return
	}
	logger.WarnLogger.Warnf("Backend rejected token for session %s, clearing credentials", sess.ID)
	sess.ClearCredentials()
	if c.Sessions == nil {
		return
	}
	if err := c.Sessions.ClearCredentials(context.WithoutCancel(ctx), sess.ID); err != nil {
		logger.ErrorLogger.Errorf("Failed to clear credentials for session %s: %v", sess.ID, err)
	}
}
