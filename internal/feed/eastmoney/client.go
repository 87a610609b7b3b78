// Package eastmoney scrapes the Eastmoney finance portal for the consensus
// inputs no market-data vendor carries: analyst buy ratings, sector heat and
// stock-forum discussion volume.
package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tianji-quant/tianji/pkg/httputil"
	"github.com/tianji-quant/tianji/pkg/logger"
)

// DefaultBaseURL is the production portal root.
const DefaultBaseURL = "https://data.eastmoney.com"

// Client handles communication with Eastmoney. All Eastmoney fetches go
// through this client so rate limiting applies globally.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a client. An empty baseURL selects the production portal;
// tests point it at a local httptest server.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// fetchHTML fetches one portal page.
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
