package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signflow/internal/config"
)

const userAgent = "signflow/0.1"

// Service defines the notification surface used by the daemon.
type Service interface {
	NotifyDaemonStarted(ctx context.Context, sessionID, apiAddress string) error
	NotifySessionNotice(ctx context.Context, level, message string) error
	NotifyExportSaved(ctx context.Context, path string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		minLevel: levelRank(cfg.Notifications.MinLevel),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	minLevel int
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, sessionID, apiAddress string) error {
	message := "Daemon listening"
	if addr := strings.TrimSpace(apiAddress); addr != "" {
		message += " on " + addr
	}
	if id := strings.TrimSpace(sessionID); id != "" {
		message += "\nSession: " + id
	}
	return n.send(ctx, payload{
		title:   "signflow - Daemon Started",
		message: message,
		tags:    []string{"signflow", "daemon", "started"},
	})
}

func (n *ntfyService) NotifySessionNotice(ctx context.Context, level, message string) error {
	rank := levelRank(level)
	if rank < n.minLevel {
		return nil
	}
	data := payload{
		title:   "signflow - Notice",
		message: strings.TrimSpace(message),
		tags:    []string{"signflow", "notice", strings.ToLower(strings.TrimSpace(level))},
	}
	if rank >= levelRank("error") {
		data.title = "signflow - Error"
		data.tags = []string{"signflow", "error", "alert"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportSaved(ctx context.Context, path string) error {
	if n.minLevel > levelRank("info") {
		return nil
	}
	return n.send(ctx, payload{
		title:   "signflow - Export Saved",
		message: "Saved " + strings.TrimSpace(path),
		tags:    []string{"signflow", "export", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "signflow - Test",
		message:  "Notification system test",
		tags:     []string{"signflow", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// levelRank orders notice levels; unknown levels rank as info.
func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return 2
	case "warn", "warning":
		return 1
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) NotifyDaemonStarted(context.Context, string, string) error { return nil }
func (noopService) NotifySessionNotice(context.Context, string, string) error { return nil }
func (noopService) NotifyExportSaved(context.Context, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
