// Package truenas provides a minimal client for the TrueNAS REST API (v2.0).
//
// The client is transport only: it builds resource URIs, attaches Basic
// credentials and moves JSON bodies. It performs one attempt per call and
// keeps no state between calls.
package truenas

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// APIPrefix is appended to the appliance URL to form the API endpoint.
const APIPrefix = "/api/v2.0"

// Client talks to a single TrueNAS appliance.
type Client struct {
	endpoint   string
	user       string
	password   string
	httpClient *http.Client
}

// NewClient creates a new TrueNAS client for the appliance at url.
// A zero timeout leaves requests unbounded. insecure disables TLS
// verification for appliances serving a self-signed certificate.
func NewClient(url, user, password string, timeout time.Duration, insecure bool) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
	}

	return &Client{
		endpoint: strings.TrimRight(url, "/") + APIPrefix,
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Endpoint returns the API endpoint, e.g. https://nas.local/api/v2.0
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close closes idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// ItemPath returns the item-scoped path for a resource in a collection.
func ItemPath(collection, id string) string {
	return fmt.Sprintf("%s/id/%s", strings.Trim(collection, "/"), id)
}

func (c *Client) uri(resource string) string {
	return fmt.Sprintf("%s/%s/", c.endpoint, strings.TrimPrefix(resource, "/"))
}

// Request performs a single HTTP request against resource.
// payload, when non-nil, is sent as the JSON body.
func (c *Client) Request(ctx context.Context, method, resource string, payload any) (Response, error) {
	url := c.uri(resource)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Response{}, &TransportError{Method: method, URL: url, Err: err}
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{Method: method, URL: url, Err: err}
	}

	log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("TrueNAS request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &RemoteError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	return newResponse(raw), nil
}

// Fetch returns every record of a collection in server order.
func (c *Client) Fetch(ctx context.Context, collection string) ([]Remote, error) {
	resp, err := c.Request(ctx, http.MethodGet, collection, nil)
	if err != nil {
		return nil, err
	}

	var items []Remote
	if err := resp.Decode(&items); err != nil {
		return nil, fmt.Errorf("unexpected %s collection: %w", collection, err)
	}

	return items, nil
}

// Create posts payload to a collection.
func (c *Client) Create(ctx context.Context, collection string, payload any) (Response, error) {
	return c.Request(ctx, http.MethodPost, collection, payload)
}

// Replace overwrites the record at item (see ItemPath) with payload.
func (c *Client) Replace(ctx context.Context, item string, payload any) (Response, error) {
	return c.Request(ctx, http.MethodPut, item, payload)
}

// Remove deletes the record at item (see ItemPath).
func (c *Client) Remove(ctx context.Context, item string) (Response, error) {
	return c.Request(ctx, http.MethodDelete, item, nil)
}
