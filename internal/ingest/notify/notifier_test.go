package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingChannel struct {
	mu       sync.Mutex
	contents []string
	err      error
}

func (c *recordingChannel) Send(_ context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.contents = append(c.contents, content)
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contents)
}

func TestWebhookChannelPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	notifier, err := NewRunNotifier(channel, nil)
	if err != nil {
		t.Fatalf("new run notifier: %v", err)
	}

	alert := Alert{
		File:       "Tracker Samsung.xlsx",
		FileID:     "file-9",
		Status:     ingest.RunError,
		Error:      "storage error: connection reset",
		Duration:   1500 * time.Millisecond,
		OccurredAt: time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC),
	}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case payload := <-payloadCh:
		if payload.MsgType != "text" {
			t.Fatalf("expected msgtype text, got %s", payload.MsgType)
		}
		content := payload.Text.Content
		checks := []string{
			"[Workbook Ingest Failed]",
			"File: Tracker Samsung.xlsx",
			"Run: file-9",
			"Error: storage error: connection reset",
			"Duration: 1.5s",
			"Occurred: 2026-02-03T09:30:00Z",
		}
		for _, check := range checks {
			if !strings.Contains(content, check) {
				t.Fatalf("content missing %q:\n%s", check, content)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook payload")
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	if err := channel.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNewWebhookChannelEmptyURL(t *testing.T) {
	if _, err := NewWebhookChannel(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestRunNotifierCooldown(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)}
	channel := &recordingChannel{}
	notifier, err := NewRunNotifier(channel, nil, WithCooldown(time.Minute), WithClock(clock))
	if err != nil {
		t.Fatalf("new run notifier: %v", err)
	}

	alert := Alert{File: "Tracker Acme.xlsx", Status: ingest.RunError, Error: "boom"}
	ctx := context.Background()

	if err := notifier.Notify(ctx, alert); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if err := notifier.Notify(ctx, alert); err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if channel.count() != 1 {
		t.Fatalf("expected cooldown to suppress repeat, got %d sends", channel.count())
	}

	clock.Advance(2 * time.Minute)
	if err := notifier.Notify(ctx, alert); err != nil {
		t.Fatalf("notify after cooldown: %v", err)
	}
	if channel.count() != 2 {
		t.Fatalf("expected send after cooldown, got %d", channel.count())
	}

	other := Alert{File: "Tracker Other.xlsx", Status: ingest.RunError, Error: "boom"}
	if err := notifier.Notify(ctx, other); err != nil {
		t.Fatalf("notify other file: %v", err)
	}
	if channel.count() != 3 {
		t.Fatalf("expected distinct file to send, got %d", channel.count())
	}
}

func TestRunNotifierPropagatesSendError(t *testing.T) {
	channel := &recordingChannel{err: errors.New("down")}
	notifier, err := NewRunNotifier(channel, nil)
	if err != nil {
		t.Fatalf("new run notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), Alert{File: "a.xlsx", Status: ingest.RunError}); err == nil {
		t.Fatal("expected send error")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, _ Alert) error {
	s.calls++
	return s.err
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &stubNotifier{}
	second := &stubNotifier{err: errors.New("down")}
	third := &stubNotifier{}

	multi := NewMultiNotifier(first, second, third)
	err := multi.Notify(context.Background(), Alert{File: "a.xlsx", Status: ingest.RunError})
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected first failure to surface, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("expected all notifiers called, got %d/%d/%d", first.calls, second.calls, third.calls)
	}
}
