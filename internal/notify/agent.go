package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrInboxFull is returned when the agent cannot take more messages.
var ErrInboxFull = errors.New("notification inbox full")

// Notification is what finally reaches the user.
type Notification struct {
	Title string
	Body  string
	Tag   string
}

// Deliverer shows a notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogDeliverer logs notifications and optionally echoes them to Out.
type LogDeliverer struct {
	Out io.Writer
}

// Deliver implements Deliverer.
func (d LogDeliverer) Deliver(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "Notification delivered", "title", n.Title, "body", n.Body, "tag", n.Tag)
	if d.Out == nil {
		return nil
	}
	_, err := fmt.Fprintf(d.Out, "🔔 %s: %s\n", n.Title, n.Body)
	return err
}

// Agent is the background delivery agent. Messages arrive through Dispatch
// and are handled one at a time by Run, which also owns the daily reminder.
type Agent struct {
	deliverer Deliverer
	inbox     chan Message
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	next      time.Time
	language  string
	hour      int
	minute    int
	mu        sync.Mutex
	scheduled bool
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithAgentClock replaces time.Now and time.After.
func WithAgentClock(now func() time.Time, after func(time.Duration) <-chan time.Time) AgentOption {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
		if after != nil {
			a.after = after
		}
	}
}

// WithInboxSize sets how many undelivered messages may queue up.
func WithInboxSize(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.inbox = make(chan Message, n)
		}
	}
}

// NewAgent creates an agent delivering through d.
func NewAgent(d Deliverer, opts ...AgentOption) *Agent {
	a := &Agent{
		deliverer: d,
		inbox:     make(chan Message, 32),
		now:       time.Now,
		after:     time.After,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dispatch queues msg without waiting for it to be delivered.
func (a *Agent) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	select {
	case a.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrInboxFull
	}
}

// NextReminder reports when the daily reminder fires next, if scheduled.
func (a *Agent) NextReminder() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next, a.scheduled
}

// Run handles messages until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	slog.DebugContext(ctx, "Notification agent started")
	var reminder <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "Notification agent stopped", "reason", ctx.Err())
			return nil
		case msg := <-a.inbox:
			reminder = a.handle(ctx, msg, reminder)
		case <-reminder:
			text := TextFor(a.reminderLanguage())
			a.deliver(ctx, Notification{Title: text.ReminderTitle, Body: text.ReminderBody, Tag: "daily-reminder"})
			reminder = a.schedule()
		}
	}
}

// Flush handles whatever is already queued without waiting for more. It is
// for short-lived processes that never call Run; reminders scheduled while
// flushing do not fire. It returns the number of messages handled.
func (a *Agent) Flush(ctx context.Context) int {
	handled := 0
	for {
		select {
		case msg := <-a.inbox:
			a.handle(ctx, msg, nil)
			handled++
		default:
			return handled
		}
	}
}

func (a *Agent) handle(ctx context.Context, msg Message, reminder <-chan time.Time) <-chan time.Time {
	slog.DebugContext(ctx, "Handling notification request", "kind", msg.Kind)
	text := TextFor(msg.Language)

	switch msg.Kind {
	case KindTest:
		a.deliver(ctx, Notification{Title: text.TestTitle, Body: text.TestBody, Tag: "test"})
	case KindBudgetAlert:
		body := msg.Body
		if body == "" {
			body = text.BudgetFallbackBody
		}
		a.deliver(ctx, Notification{Title: text.BudgetTitle, Body: body, Tag: "budget-alert"})
	case KindScheduleReminder:
		hour, minute, err := ParseClock(msg.At)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring reminder request", "error", err)
			return reminder
		}
		a.mu.Lock()
		a.hour, a.minute, a.language = hour, minute, msg.Language
		a.mu.Unlock()
		return a.schedule()
	case KindCancelReminder:
		a.mu.Lock()
		a.scheduled = false
		a.next = time.Time{}
		a.mu.Unlock()
		slog.InfoContext(ctx, "Daily reminder cancelled")
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring notification request", "kind", msg.Kind)
	}
	return reminder
}

// schedule arms the reminder for the next occurrence, replacing any pending one.
func (a *Agent) schedule() <-chan time.Time {
	a.mu.Lock()
	now := a.now()
	a.next = NextReminder(now, a.hour, a.minute)
	a.scheduled = true
	wait := a.next.Sub(now)
	next := a.next
	a.mu.Unlock()

	slog.Info("Daily reminder scheduled", "at", next.Format(time.RFC3339))
	return a.after(wait)
}

func (a *Agent) reminderLanguage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

func (a *Agent) deliver(ctx context.Context, n Notification) {
	if err := a.deliverer.Deliver(ctx, n); err != nil {
		slog.WarnContext(ctx, "Failed to deliver notification", "title", n.Title, "error", err)
	}
}
