package commenergyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 2048

// Client talks to the remote Commenergy REST API. Every call carries the
// bearer token of the session it runs for.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client with its own http.Client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type validatable interface {
	Validate() error
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	return c.HTTP
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// doJSON sends in (if any) as JSON and decodes the answer into out (if any).
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out interface{}, entity string) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote api: encode %s: %w", entity, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out, entity)
}

func (c *Client) send(req *http.Request, path string, out interface{}, entity string) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("remote api: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote api: read %s %s: %w", req.Method, path, err)
	}
	if err := statusError(req.Method, path, resp.StatusCode, respBody); err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DeserializationError{Entity: entity, Err: err}
	}
	return validate(out, entity)
}

func statusError(method, path string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Body: string(body)}
}

// validate runs Validate on a decoded entity; slices are checked by validateEach.
func validate(out interface{}, entity string) error {
	if v, ok := out.(validatable); ok {
		if err := v.Validate(); err != nil {
			return &DeserializationError{Entity: entity, Err: err}
		}
	}
	return nil
}

func validateEach[T any, P interface {
	*T
	validatable
}](entity string, items []T) error {
	for i := range items {
		if err := P(&items[i]).Validate(); err != nil {
			return &DeserializationError{Entity: entity, Err: err}
		}
	}
	return nil
}

// Ping reports whether the remote API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodHead, "/", "", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
