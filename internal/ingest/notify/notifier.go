package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

// Alert describes the outcome of a workbook run that operators should hear
// about.
type Alert struct {
	File        string
	FileID      string
	Status      string
	Error       string
	Inserted    int
	Updated     int
	Skipped     int
	ParseErrors int
	Duration    time.Duration
	OccurredAt  time.Time
}

// Notifier sends run alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Clock provides time for cooldown tracking.
type Clock interface {
	Now() time.Time
}

// RunNotifier renders run alerts through a template and delivers them via a
// channel. Repeated alerts for the same file and status are suppressed
// within the cooldown window.
type RunNotifier struct {
	channel  Channel
	template *Template
	cooldown time.Duration
	clock    Clock
	mu       sync.Mutex
	sent     map[string]time.Time
}

// Option configures the notifier.
type Option func(*RunNotifier)

// WithCooldown sets a minimum interval between alerts for the same file and
// status.
func WithCooldown(interval time.Duration) Option {
	return func(n *RunNotifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *RunNotifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewRunNotifier constructs a run notifier.
func NewRunNotifier(channel Channel, template *Template, opts ...Option) (*RunNotifier, error) {
	if channel == nil {
		return nil, errors.New("run notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &RunNotifier{
		channel:  channel,
		template: template,
		clock:    systemClock{},
		sent:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify renders and delivers the alert. Alerts suppressed by the cooldown
// return nil.
func (n *RunNotifier) Notify(ctx context.Context, alert Alert) error {
	if n == nil || n.channel == nil {
		return errors.New("run notifier: nil channel")
	}
	content, err := n.template.Render(buildTemplateData(alert))
	if err != nil {
		return err
	}
	if !n.shouldSend(alert) {
		return nil
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return err
	}
	n.markSent(alert)
	return nil
}

func (n *RunNotifier) shouldSend(alert Alert) bool {
	if n.cooldown <= 0 {
		return true
	}
	key := alertKey(alert)
	n.mu.Lock()
	at, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	return n.clock.Now().UTC().Sub(at) >= n.cooldown
}

func (n *RunNotifier) markSent(alert Alert) {
	n.mu.Lock()
	n.sent[alertKey(alert)] = n.clock.Now().UTC()
	n.mu.Unlock()
}

func alertKey(alert Alert) string {
	return alert.File + "|" + alert.Status
}

func eventLabel(status string) string {
	switch status {
	case ingest.RunError:
		return "Ingest Failed"
	case ingest.RunCompleted:
		return "Ingest Completed"
	default:
		return status
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
