package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 1 << 20

// Multipart is a pre-encoded multipart body. Its ContentType carries the boundary
// and is sent as-is instead of application/json.
type Multipart struct {
	Body        io.Reader
	ContentType string
}

// RequestOption tweaks an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a header on the outgoing request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

// WithQuery merges query parameters into the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(r *http.Request) {
		if len(q) == 0 {
			return
		}
		existing := r.URL.Query()
		for k, vs := range q {
			for _, v := range vs {
				existing.Add(k, v)
			}
		}
		r.URL.RawQuery = existing.Encode()
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// newRequest encodes body. forceJSON is the public client's rule: always JSON.
func newRequest(ctx context.Context, method, rawURL string, body any, forceJSON bool) (*http.Request, error) {
	var (
		reader      io.Reader
		contentType = "application/json"
	)

	switch b := body.(type) {
	case nil:
	case *Multipart:
		if forceJSON {
			return nil, fmt.Errorf("multipart bodies are not supported by this client")
		}
		reader = b.Body
		contentType = b.ContentType
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil || forceJSON {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// readResponse turns non-2xx answers into *APIError and decodes 2xx bodies into out.
// Bodies wrapped as {"data": ...} are unwrapped.
func readResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if rawOut, ok := out.(*json.RawMessage); ok {
		*rawOut = unwrapData(raw)
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrNetwork, err)
	}
	return nil
}

func unwrapData(raw []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return envelope.Data
	}
	return raw
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}

	var body struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	apiErr.Message = body.Message
	apiErr.Code = body.Code
	if len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil {
			if apiErr.Message == "" {
				apiErr.Message = s
			}
		} else {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil {
				if apiErr.Message == "" {
					apiErr.Message = nested.Message
				}
				if apiErr.Code == "" {
					apiErr.Code = nested.Code
				}
			}
		}
	}
	return apiErr
}
