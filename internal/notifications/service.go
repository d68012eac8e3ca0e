package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sdportal/internal/config"
)

const userAgent = "sdportal/0.1.0"

// Service defines the notification surface used by the watcher and CLI.
type Service interface {
	NotifyTaskCompleted(ctx context.Context, taskID, prompt string, images int, dir string) error
	NotifyTaskAborted(ctx context.Context, taskID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: cfg.NotificationTimeout()},
	}
}

// Enabled reports whether svc actually delivers messages.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
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
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, taskID, prompt string, images int, dir string) error {
	message := fmt.Sprintf("🖼️ Task %s finished: %d image(s)", strings.TrimSpace(taskID), images)
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		message = fmt.Sprintf("%s\nPrompt: %s", message, prompt)
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		message = fmt.Sprintf("%s\nSaved to: %s", message, dir)
	}
	return n.send(ctx, payload{
		title:    "sdportal - Images Ready",
		message:  message,
		tags:     []string{"sdportal", "task", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyTaskAborted(ctx context.Context, taskID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	return n.send(ctx, payload{
		title:   "sdportal - Task Aborted",
		message: fmt.Sprintf("❌ Task %s aborted: %s", strings.TrimSpace(taskID), reason),
		tags:    []string{"sdportal", "task", "aborted"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "sdportal - Test",
		message:  "🔔 Notifications are working",
		tags:     []string{"sdportal", "test"},
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
	if data.priority != "" && data.priority != "default" {
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

type noopService struct{}

func (noopService) NotifyTaskCompleted(context.Context, string, string, int, string) error { return nil }
func (noopService) NotifyTaskAborted(context.Context, string, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
