package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signflow/internal/api"
	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/translate"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// APIError is a non-2xx daemon response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.Status)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.Status, e.Message)
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	// stream has no timeout so log follow requests can block.
	stream *http.Client
}

// NewClient returns a client for the daemon bound at bind, e.g.
// "127.0.0.1:7490" or "http://host:port".
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path, base.RawQuery, base.Fragment = "", "", ""
	return &Client{
		base:   base,
		token:  strings.TrimSpace(token),
		http:   &http.Client{Timeout: 45 * time.Second},
		stream: &http.Client{},
	}, nil
}

// NewClientFromConfig builds a client from the configured bind and token.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	return NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, c.http, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// State returns the session snapshot. settle waits for remote work first.
func (c *Client) State(ctx context.Context, settle bool) (translate.Snapshot, error) {
	var query url.Values
	if settle {
		query = url.Values{"settle": {"1"}}
	}
	return c.state(ctx, http.MethodGet, "/api/state", query, nil)
}

// SetText replaces the source text.
func (c *Client) SetText(ctx context.Context, text string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/text", api.TextRequest{Text: text})
}

// SetSpokenLanguage sets the spoken language; nil requests detection.
func (c *Client) SetSpokenLanguage(ctx context.Context, lang *string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/spoken-language", api.LanguageRequest{Language: lang})
}

// SetSignedLanguage sets the signed language.
func (c *Client) SetSignedLanguage(ctx context.Context, lang string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/signed-language", api.LanguageRequest{Language: &lang})
}

// Flip swaps the translation direction.
func (c *Client) Flip(ctx context.Context) (translate.Snapshot, error) {
	return c.post(ctx, "/api/flip", nil)
}

// SetInputMode switches between webcam, upload and text input.
func (c *Client) SetInputMode(ctx context.Context, mode string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/input-mode", api.InputModeRequest{Mode: mode})
}

// Suggest asks for a normalized rewrite of the source text.
func (c *Client) Suggest(ctx context.Context) (translate.Snapshot, error) {
	return c.post(ctx, "/api/suggest", nil)
}

// Pivot translates the source text through the pivot language.
func (c *Client) Pivot(ctx context.Context) (translate.Snapshot, error) {
	return c.post(ctx, "/api/pivot", nil)
}

// Recompute regenerates the sign notation and pose reference.
func (c *Client) Recompute(ctx context.Context) (translate.Snapshot, error) {
	return c.post(ctx, "/api/recompute", nil)
}

// Describe requests the description of one sign token.
func (c *Client) Describe(ctx context.Context, fsw string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/describe", api.DescribeRequest{FSW: fsw})
}

// ImportPose replaces the pose reference.
func (c *Client) ImportPose(ctx context.Context, ref string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/pose", api.ReferenceRequest{Reference: ref})
}

// SetVideo stores the rendered video reference.
func (c *Client) SetVideo(ctx context.Context, ref string) (translate.Snapshot, error) {
	return c.post(ctx, "/api/video", api.ReferenceRequest{Reference: ref})
}

// ResetVideo drops the rendered video reference.
func (c *Client) ResetVideo(ctx context.Context) (translate.Snapshot, error) {
	return c.state(ctx, http.MethodDelete, "/api/video", nil, nil)
}

// Init applies the one-time initial overrides.
func (c *Client) Init(ctx context.Context, req api.InitRequest) (translate.Snapshot, error) {
	return c.post(ctx, "/api/init", req)
}

// Export saves the current artifact into dir on the daemon host.
func (c *Client) Export(ctx context.Context, dir string) (string, error) {
	var out api.ExportResponse
	err := c.do(ctx, c.http, http.MethodPost, "/api/export", nil, api.ExportRequest{Dir: dir}, &out)
	return out.Path, err
}

// SetConnectivity pins connectivity; nil clears the override.
func (c *Client) SetConnectivity(ctx context.Context, online *bool) (connectivity.Status, error) {
	var out connectivity.Status
	err := c.do(ctx, c.http, http.MethodPost, "/api/connectivity", nil, api.ConnectivityRequest{Online: online}, &out)
	return out, err
}

// History lists recorded translations, newest first.
func (c *Client) History(ctx context.Context, limit int, sessionID string) ([]api.HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if strings.TrimSpace(sessionID) != "" {
		query.Set("session", sessionID)
	}
	var out api.HistoryResponse
	err := c.do(ctx, c.http, http.MethodGet, "/api/history", query, nil, &out)
	return out.Entries, err
}

// Notices returns session notices newer than since.
func (c *Client) Notices(ctx context.Context, since uint64) (api.NoticesResponse, error) {
	query := url.Values{}
	if since > 0 {
		query.Set("since", strconv.FormatUint(since, 10))
	}
	var out api.NoticesResponse
	err := c.do(ctx, c.http, http.MethodGet, "/api/notices", query, nil, &out)
	return out, err
}

// LogQuery selects log events.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
}

// Logs fetches log events. With Follow it blocks until events arrive or ctx
// ends.
func (c *Client) Logs(ctx context.Context, q LogQuery) (api.LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if strings.TrimSpace(q.Component) != "" {
		values.Set("component", q.Component)
	}
	var out api.LogStreamResponse
	err := c.do(ctx, c.stream, http.MethodGet, "/api/logs", values, nil, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body any) (translate.Snapshot, error) {
	return c.state(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) state(ctx context.Context, method, path string, query url.Values, body any) (translate.Snapshot, error) {
	var out api.StateResponse
	err := c.do(ctx, c.http, method, path, query, body, &out)
	return out.State, err
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else if method == http.MethodPost {
		reader = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := client.Do(req)
	if err != nil {
		if IsUnavailable(err) {
			return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &payload) != nil {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDaemonNotRunning) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
