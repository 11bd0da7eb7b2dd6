// Package normalizer asks the text-normalization service for a corrected
// version of spoken-language input.
package normalizer

import (
	"context"
	"net/url"
	"strings"

	"signflow/internal/services"
	"signflow/internal/services/remote"
)

// Client calls the normalization endpoint.
type Client struct {
	endpoint string
	http     *remote.Client
}

// New returns a client for endpoint using the shared remote client.
func New(endpoint string, http *remote.Client) *Client {
	return &Client{endpoint: strings.TrimSpace(endpoint), http: http}
}

type response struct {
	Text *string `json:"text"`
}

// Normalize returns the service's suggested rewrite of text in lang.
func (c *Client) Normalize(ctx context.Context, lang, text string) (string, error) {
	query := url.Values{}
	query.Set("lang", lang)
	query.Set("text", text)

	var resp response
	if err := c.http.GetJSON(ctx, c.endpoint, query, &resp); err != nil {
		return "", err
	}
	if resp.Text == nil {
		return "", services.Wrap(services.ErrMalformedResponse, "normalizer", "normalize", "response missing text", nil)
	}
	return *resp.Text, nil
}
