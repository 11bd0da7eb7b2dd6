// Package pivot translates spoken-language text into the pivot language used
// for sign generation.
package pivot

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"signflow/internal/language"
	"signflow/internal/logging"
	"signflow/internal/services/remote"
)

// Client calls a Google-Translate-style endpoint.
type Client struct {
	endpoint    string
	clientParam string
	target      string
	http        *remote.Client
	logger      *slog.Logger
}

// New returns a client that translates into target.
func New(endpoint, clientParam, target string, http *remote.Client, logger *slog.Logger) *Client {
	if strings.TrimSpace(clientParam) == "" {
		clientParam = "gtx"
	}
	if strings.TrimSpace(target) == "" {
		target = "en"
	}
	return &Client{
		endpoint:    strings.TrimSpace(endpoint),
		clientParam: clientParam,
		target:      language.Normalize(target),
		http:        http,
		logger:      logging.NewComponentLogger(logger, "pivot"),
	}
}

// Target returns the pivot language code.
func (c *Client) Target() string {
	return c.target
}

// Translate returns text rendered in the pivot language. The returned string
// is always usable: a source already in the pivot language is passed through
// without a request, and an unexpected response shape yields the original
// text. A transport failure also yields the original text together with a
// non-nil error so callers can tell a real translation from a fallback.
func (c *Client) Translate(ctx context.Context, text, source string) (string, error) {
	if language.MatchesAny(source, []string{c.target}) {
		return text, nil
	}

	query := url.Values{}
	query.Set("client", c.clientParam)
	query.Set("sl", source)
	query.Set("tl", c.target)
	query.Set("dt", "t")
	query.Set("q", text)

	body, err := c.http.GetRaw(ctx, c.endpoint, query)
	if err != nil {
		return text, err
	}

	translated, ok := extract(body)
	if !ok {
		logging.WarnWithContext(c.logger, "pivot response malformed; using original text", "pivot_malformed_response",
			logging.String("source_language", source),
			logging.String(logging.FieldImpact, "sign generation uses the untranslated text"),
		)
		return text, nil
	}
	return translated, nil
}

// extract joins the translated segments found at [0][i][0].
func extract(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	first := gjson.GetBytes(body, "0.0.0")
	if first.Type != gjson.String || first.String() == "" {
		return "", false
	}
	var b strings.Builder
	for _, segment := range gjson.GetBytes(body, "0").Array() {
		part := segment.Get("0")
		if part.Type == gjson.String {
			b.WriteString(part.String())
		}
	}
	return b.String(), true
}
