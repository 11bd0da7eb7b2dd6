// Package describer fetches human-readable descriptions of SignWriting signs.
package describer

import (
	"context"
	"strings"

	"signflow/internal/services"
	"signflow/internal/services/remote"
)

// Client calls the sign description endpoint.
type Client struct {
	endpoint string
	http     *remote.Client
}

// New returns a client for endpoint.
func New(endpoint string, http *remote.Client) *Client {
	return &Client{endpoint: strings.TrimSpace(endpoint), http: http}
}

type request struct {
	Data struct {
		FSW string `json:"fsw"`
	} `json:"data"`
}

type response struct {
	Result *struct {
		Description *string `json:"description"`
	} `json:"result"`
}

// Describe returns the description of a single FSW sign.
func (c *Client) Describe(ctx context.Context, fsw string) (string, error) {
	var req request
	req.Data.FSW = fsw

	var resp response
	if err := c.http.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return "", err
	}
	if resp.Result == nil || resp.Result.Description == nil {
		return "", services.Wrap(services.ErrMalformedResponse, "describer", "describe", "response missing result.description", nil)
	}
	return *resp.Result.Description, nil
}
