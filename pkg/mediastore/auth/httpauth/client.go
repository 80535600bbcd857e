// Package httpauth implements mediastore.Authorizer against a remote HTTP
// verification endpoint.
package httpauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config options for the HTTP authorizer client
type Config struct {
	// VerifyURL is the endpoint for verification requests
	VerifyURL string

	// Timeout bounds each verification call (default: 5s)
	Timeout time.Duration
}

// Client verifies requests by POSTing the actor, credential, and resource
// path to a remote endpoint. 200 means allow, 401/403 mean deny; anything
// else is an availability error and the engine fails closed.
type Client struct {
	httpClient *http.Client
	verifyURL  string
}

type verifyRequest struct {
	Actor      string `json:"actor"`
	Credential string `json:"credential"`
	Resource   string `json:"resource"`
}

// New creates a new HTTP authorizer client. If httpClient is nil a client
// with the configured timeout is used.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.VerifyURL == "" {
		return nil, errors.New("verify URL is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		verifyURL:  cfg.VerifyURL,
	}, nil
}

// VerifyRequest implements mediastore.Authorizer.
func (c *Client) VerifyRequest(ctx context.Context, actor, credential, resourcePath string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		Actor:      actor,
		Credential: credential,
		Resource:   resourcePath,
	})
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d from authorizer", resp.StatusCode)
	}
}
