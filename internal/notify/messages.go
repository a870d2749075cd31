// Package notify carries one-way notification requests from the ledger side
// to a delivery agent, either in process or over AMQP.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind names a notification request.
type Kind string

const (
	KindTest             Kind = "test"
	KindBudgetAlert      Kind = "budget_alert"
	KindScheduleReminder Kind = "schedule_reminder"
	KindCancelReminder   Kind = "cancel_reminder"
)

// ErrUnknownKind is returned for messages the agent cannot act on.
var ErrUnknownKind = errors.New("unknown notification kind")

// Message is a fire-and-forget request to the delivery agent.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Body      string    `json:"body,omitempty"`
	At        string    `json:"at,omitempty"`
	Language  string    `json:"language,omitempty"`
}

// Dispatcher sends messages without waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// TestMessage asks the agent to show a test notification.
func TestMessage(language string) Message {
	return Message{Kind: KindTest, Language: language, Timestamp: time.Now()}
}

// BudgetAlertMessage asks the agent to show body as a budget alert.
func BudgetAlertMessage(language, body string) Message {
	return Message{Kind: KindBudgetAlert, Language: language, Body: body, Timestamp: time.Now()}
}

// ScheduleReminderMessage asks for a daily reminder at HH:MM local time.
func ScheduleReminderMessage(language, at string) Message {
	return Message{Kind: KindScheduleReminder, Language: language, At: at, Timestamp: time.Now()}
}

// CancelReminderMessage stops the daily reminder.
func CancelReminderMessage() Message {
	return Message{Kind: KindCancelReminder, Timestamp: time.Now()}
}

// Validate checks that msg is something the agent can act on.
func (m Message) Validate() error {
	switch m.Kind {
	case KindTest, KindBudgetAlert, KindCancelReminder:
		return nil
	case KindScheduleReminder:
		if _, _, err := ParseClock(m.At); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
}

// ToJSON converts the message to JSON bytes.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and validates a message.
func MessageFromJSON(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NextReminder returns the first HH:MM after now in now's location: today if
// it has not passed yet, otherwise tomorrow.
func NextReminder(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
