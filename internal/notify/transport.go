// Package notify delivers formatted notifications to chat destinations.
//
// A stored destination token does not fully determine the session address
// the chat transport accepts: deployments name their platform adapter
// differently and older installs use a legacy address scheme. The
// dispatcher therefore derives an ordered list of candidate addresses and
// tries them in turn, stopping at the first success. This is a
// compatibility shim for ambiguous addressing, not a retry policy: there
// is no waiting or backoff, and a message is delivered at most once.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport sends one message to one session address.
type Transport interface {
	Send(ctx context.Context, session, message string) error
}

// HTTPTransport delivers messages through a chat bot HTTP API.
type HTTPTransport struct {
	apiURL      string
	accessToken string
	client      *http.Client
}

// NewHTTPTransport creates a transport posting to apiURL. token may be
// empty when the bot API is unauthenticated.
func NewHTTPTransport(apiURL, token string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		apiURL:      apiURL,
		accessToken: token,
		client:      &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

// Send posts the message as JSON. Any non-2xx response is an error.
func (t *HTTPTransport) Send(ctx context.Context, session, message string) error {
	body, err := json.Marshal(sendRequest{Session: session, Message: message})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to %q: %w", session, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep a little of the body for diagnosis.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("send to %q: status %d: %s", session, resp.StatusCode, snippet)
	}
	return nil
}
