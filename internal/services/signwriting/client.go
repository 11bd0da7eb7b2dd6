// Package signwriting requests SignWriting (FSW) transcripts of spoken text.
package signwriting

import (
	"context"
	"strings"

	"signflow/internal/services"
	"signflow/internal/services/remote"
)

// Request carries the inputs of one transcript generation.
type Request struct {
	Text           string   `json:"text"`
	Sentences      []string `json:"sentences"`
	SourceLanguage string   `json:"sourceLanguage"`
	SignedLanguage string   `json:"signedLanguage"`
}

// Client calls the spoken-text-to-SignWriting endpoint.
type Client struct {
	endpoint string
	http     *remote.Client
}

// New returns a client for endpoint.
func New(endpoint string, http *remote.Client) *Client {
	return &Client{endpoint: strings.TrimSpace(endpoint), http: http}
}

type response struct {
	Text *string `json:"text"`
}

// Translate returns the space-delimited FSW transcript for req.
func (c *Client) Translate(ctx context.Context, req Request) (string, error) {
	if req.Sentences == nil {
		req.Sentences = []string{}
	}
	var resp response
	if err := c.http.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return "", err
	}
	if resp.Text == nil {
		return "", services.Wrap(services.ErrMalformedResponse, "signwriting", "translate", "response missing text", nil)
	}
	return *resp.Text, nil
}

// Tokens splits a transcript on spaces, dropping empty tokens.
func Tokens(transcript string) []string {
	fields := strings.Split(transcript, " ")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}
