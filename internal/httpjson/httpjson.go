// Package httpjson holds the small JSON-over-HTTP helpers shared by the
// model and ledger clients.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned for a non-2xx reply.
type StatusError struct {
	Method string // Method is the HTTP method
	URL    string // URL is the requested URL
	Status int    // Status is the response status code
	Body   string // Body is the first bytes of the response body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Get performs a GET request and decodes the JSON response into result.
func Get(ctx context.Context, client *http.Client, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build GET %s:\n%w", url, err)
	}

	return do(client, req, result)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into result. A nil result discards the body.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, result any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("build POST %s:\n%w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, req, result)
}

// do sends req and decodes a 2xx JSON reply.
func do(client *http.Client, req *http.Request, result any) error {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", req.Method, req.URL, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

		return &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   string(bytes.TrimSpace(snippet)),
		}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s %s:\n%w", req.Method, req.URL, err)
	}

	return nil
}
