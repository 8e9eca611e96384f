// Package client is the HTTP client shared by the worker loop and the
// control CLI, grounded on the teacher's webhook dispatch pattern
// (plain net/http POSTs with no backoff, only connection rotation on
// failure — see DESIGN.md).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client talks to one or more equivalent head endpoints, rotating to the
// next on any network error — no backoff, per the worker's connection-pool
// failover policy (spec §7).
type Client struct {
	endpoints []string
	http      *http.Client
	next      int

	bearerToken string
	basicUser   string
	basicPass   string
}

// Option configures a Client at construction.
type Option func(*Client)

func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

func WithBasicAuth(user, pass string) Option {
	return func(c *Client) { c.basicUser, c.basicPass = user, pass }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New builds a Client rotating across endpoints in the given order.
func New(endpoints []string, opts ...Option) *Client {
	c := &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) setAuth(req *http.Request) {
	switch {
	case c.bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case c.basicUser != "":
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}
}

// do sends req against each endpoint in rotation order, starting from the
// last endpoint that succeeded, until one responds or all have failed.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		idx := (c.next + i) % len(c.endpoints)
		endpoint := c.endpoints[idx]

		req, err := http.NewRequestWithContext(ctx, method, endpoint+path, bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, "failed to build request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		c.setAuth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, err := readAndClose(resp.Body)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
			continue
		}

		c.next = idx
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.Wrap(err, "failed to decode response body")
			}
		}
		return nil
	}
	return errors.Wrap(lastErr, "all head endpoints failed")
}

func readAndClose(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r)
}
