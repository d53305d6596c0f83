package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podflow/internal/config"
)

const userAgent = "Podflow-Go/0.1.0"

// RunSummary describes a finished workflow run.
type RunSummary struct {
	RunID         string
	WorkflowID    int64
	WorkflowTitle string
	Steps         int
	Committed     int
	Skipped       int
	Duration      time.Duration
	// AbortedStep is the 1-based index of the step that stopped the run.
	AbortedStep  int
	AbortedToken string
	Reason       string
}

// Service defines the notification surface exposed to the engine.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunAborted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:     topic,
		client:       client,
		runCompleted: cfg.Notifications.RunCompleted,
		runAborted:   cfg.Notifications.RunAborted,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	runCompleted bool
	runAborted   bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if !n.runCompleted {
		return nil
	}
	message := fmt.Sprintf("Workflow %s finished: %d steps committed, %d skipped in %s",
		workflowLabel(summary), summary.Committed, summary.Skipped, roundDuration(summary.Duration))
	data := payload{
		title:   "Podflow - Run Complete",
		message: message,
		tags:    []string{"podflow", "run", "completed"},
	}
	if summary.Skipped > 0 {
		data.title = "Podflow - Run Complete (with skipped steps)"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, summary RunSummary) error {
	if !n.runAborted {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Workflow %s aborted at step %d", workflowLabel(summary), summary.AbortedStep)
	if token := strings.TrimSpace(summary.AbortedToken); token != "" {
		fmt.Fprintf(&builder, " (%s)", token)
	}
	if reason := strings.TrimSpace(summary.Reason); reason != "" {
		builder.WriteString(": ")
		builder.WriteString(reason)
	}
	data := payload{
		title:    "Podflow - Run Aborted",
		message:  builder.String(),
		tags:     []string{"podflow", "run", "aborted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Podflow - Error",
		message:  builder.String(),
		tags:     []string{"podflow", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Podflow - Test",
		message:  "Notification system test",
		tags:     []string{"podflow", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func workflowLabel(summary RunSummary) string {
	if title := strings.TrimSpace(summary.WorkflowTitle); title != "" {
		return fmt.Sprintf("#%d %q", summary.WorkflowID, title)
	}
	return fmt.Sprintf("#%d", summary.WorkflowID)
}

func roundDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunAborted(context.Context, RunSummary) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
