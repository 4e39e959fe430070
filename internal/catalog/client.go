package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

const (
	defaultClientTimeout = 15 * time.Second
	maxResponseBytes     = 8 << 20
)

// Client reads the product list from an HTTP endpoint returning a JSON array.
type Client struct {
	url  string
	http *http.Client
}

// NewClient builds a Client for url. A nil httpClient gets a default one with
// a request timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultProductsURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{url: url, http: httpClient}
}

// URL returns the endpoint the client reads from.
func (c *Client) URL() string { return c.url }

func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{Op: OpRequest, URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: OpRequest, URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Op: OpStatus, URL: c.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &FetchError{Op: OpRequest, URL: c.url, Err: errors.Wrap(err, "read body")}
	}
	if len(body) > maxResponseBytes {
		return nil, &FetchError{Op: OpDecode, URL: c.url, Err: errors.New("response exceeds size limit")}
	}

	products, err := decodeProducts(body)
	if err != nil {
		return nil, &FetchError{Op: OpDecode, URL: c.url, Err: err}
	}
	return products, nil
}

func decodeProducts(body []byte) ([]Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("response is not a JSON array")
	}
	var products []Product
	if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, errors.Wrap(err, "decode product list")
	}
	return products, nil
}
