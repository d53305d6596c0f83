package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"podflow/internal/config"
	"podflow/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunAborted(context.Background(), notifications.RunSummary{WorkflowID: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsRunMessages(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RunCompleted = true
	cfg.Notifications.RunAborted = true
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyRunCompleted(ctx, notifications.RunSummary{
		WorkflowID: 3, WorkflowTitle: "Daily", Committed: 4, Skipped: 1, Duration: 61500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if err := svc.NotifyRunAborted(ctx, notifications.RunSummary{
		WorkflowID: 3, AbortedStep: 2, AbortedToken: "L8E1SL4", Reason: "synthesis failed",
	}); err != nil {
		t.Fatalf("NotifyRunAborted: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "scheduler"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}

	got := captured()
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0].title != "Podflow - Run Complete (with skipped steps)" {
		t.Fatalf("unexpected completion title %q", got[0].title)
	}
	if got[0].body != `Workflow #3 "Daily" finished: 4 steps committed, 1 skipped in 1m2s` {
		t.Fatalf("unexpected completion body %q", got[0].body)
	}
	if got[0].tags != "podflow,run,completed" || got[0].priority != "" {
		t.Fatalf("unexpected completion headers %+v", got[0])
	}
	if got[1].body != "Workflow #3 aborted at step 2 (L8E1SL4): synthesis failed" || got[1].priority != "high" {
		t.Fatalf("unexpected abort request %+v", got[1])
	}
	if got[2].body != "Error with scheduler: boom" {
		t.Fatalf("unexpected error body %q", got[2].body)
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RunCompleted = false
	cfg.Notifications.RunAborted = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyRunCompleted(ctx, notifications.RunSummary{WorkflowID: 1}); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if err := svc.NotifyRunAborted(ctx, notifications.RunSummary{WorkflowID: 1}); err != nil {
		t.Fatalf("NotifyRunAborted: %v", err)
	}
	if got := captured(); len(got) != 0 {
		t.Fatalf("expected suppressed events, got %d requests", len(got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
