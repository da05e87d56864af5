// Package priceapi is a thin HTTP client for the structured wine-price
// API. The provider's response schema varies between plans and
// versions, so the client hands back the raw body and leaves shape
// normalization to the caller.
package priceapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.wine-pricing.example.com/v1"
	defaultTimeout = 5 * time.Second
)

// Client queries the wine-price API.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest identifies the wine to price.
type SearchRequest struct {
	Query    string
	Vintage  *int
	Currency string
}

// SearchResponse carries the provider's reply. Body is the raw JSON
// payload; HTTPStatus is surfaced so callers can distinguish throttling
// from other failures. Non-2xx replies are returned here, not as errors.
type SearchResponse struct {
	HTTPStatus int
	Body       json.RawMessage
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a price API client. The request timeout is short by
// design; callers treat a timeout as a normal error outcome.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("q", req.Query)
	if req.Currency != "" {
		q.Set("currency", req.Currency)
	}
	if req.Vintage != nil {
		q.Set("vintage", strconv.Itoa(*req.Vintage))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wines/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: read response")
	}

	return &SearchResponse{
		HTTPStatus: resp.StatusCode,
		Body:       body,
	}, nil
}
