// Package quote fetches the quote of the day from an external quotation service.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/staticpress/fetch"
)

// DefaultURL serves today's quote as [{"q": "...", "a": "..."}].
const DefaultURL = "https://zenquotes.io/api/today"

// Quote is a quotation and its attribution.
type Quote struct {
	Text   string `json:"q"`
	Author string `json:"a"`
}

// Client reads the quote of the day.
type Client struct {
	url   string
	fetch *fetch.Client
}

// NewClient returns a Client for the service at url.
func NewClient(url string, fc *fetch.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, fetch: fc}
}

// Today returns the current quote, or nil when the service has none.
func (c *Client) Today(ctx context.Context) (*Quote, error) {
	var quotes []Quote
	if err := c.fetch.GetJSON(ctx, "quote", c.url, &quotes); err != nil {
		return nil, fmt.Errorf("quote of the day: %w", err)
	}
	if len(quotes) == 0 || strings.TrimSpace(quotes[0].Text) == "" {
		return nil, nil
	}
	q := quotes[0]
	return &q, nil
}
