// Package pricefeed implements the asynchronous price-lookup collaborator.
//
// A Fetcher issues a GET and reports the raw body to a success callback or
// an error to a failure callback, on an arbitrary goroutine. It does not
// support true cancellation: the caller marks a result ignorable (via its
// request generation) and discards late completions.
package pricefeed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the weighted-prices feed queried by button 3.
const DefaultURL = "http://api.bitcoincharts.com/v1/weighted_prices.json"

// DefaultTimeout bounds the whole request.
const DefaultTimeout = 2 * time.Second

// Fetcher issues asynchronous lookups. Exactly one of onSuccess/onFailure is
// invoked, once, on an arbitrary goroutine.
type Fetcher interface {
	Fetch(url string, onSuccess func(body []byte), onFailure func(err error))
}

// HTTPFetcher is the production Fetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout
// (DefaultTimeout when zero).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs the GET on a new goroutine and reports the outcome.
func (f *HTTPFetcher) Fetch(url string, onSuccess func(body []byte), onFailure func(err error)) {
	go func() {
		resp, err := f.client.Get(url)
		if err != nil {
			onFailure(err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			onFailure(fmt.Errorf("unexpected status %s", resp.Status))
			return
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			onFailure(err)
			return
		}
		onSuccess(body)
	}()
}

// Compile-time interface satisfaction check.
var _ Fetcher = (*HTTPFetcher)(nil)

// ParseQuote extracts the 24h weighted EUR price from a weighted_prices.json
// body. The feed renders prices as strings, e.g. {"EUR": {"24h": "412.16"}}.
func ParseQuote(body []byte) (string, error) {
	var doc struct {
		EUR struct {
			Day string `json:"24h"`
		} `json:"EUR"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to decode price feed: %w", err)
	}
	if doc.EUR.Day == "" {
		return "", fmt.Errorf("price feed has no EUR 24h entry")
	}
	return doc.EUR.Day, nil
}
