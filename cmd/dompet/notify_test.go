package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/notify"
)

type recordingDispatcher struct {
	sent []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) error {
	d.sent = append(d.sent, msg)
	return nil
}

func TestRunNotify_LocalTest(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	_, err := ta.settings.Set(ctx, "language", "en")
	require.NoError(t, err)

	require.NoError(t, runNotify(ctx, ta.app, &bytes.Buffer{}, notify.TestMessage(language(ctx, ta.app))))
	assert.Equal(t, 1, ta.agent.Flush(ctx))
	assert.Contains(t, ta.out.String(), "Test Notification")
}

func TestRunNotify_LocalReminderNeedsAgent(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	err := runNotify(ctx, ta.app, &bytes.Buffer{}, notify.ScheduleReminderMessage("id", "21:00"))
	assert.ErrorContains(t, err, "needs a running agent")

	err = runNotify(ctx, ta.app, &bytes.Buffer{}, notify.CancelReminderMessage())
	assert.Error(t, err)
	assert.Zero(t, ta.agent.Flush(ctx))
}

func TestRunNotify_Broker(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	broker := &recordingDispatcher{}
	ta.agent = nil
	ta.dispatcher = broker

	var out bytes.Buffer
	require.NoError(t, runNotify(ctx, ta.app, &out, notify.ScheduleReminderMessage("id", "06:30")))
	require.Len(t, broker.sent, 1)
	assert.Equal(t, notify.KindScheduleReminder, broker.sent[0].Kind)
	assert.Equal(t, "06:30", broker.sent[0].At)
	assert.Contains(t, out.String(), "Queued schedule_reminder request")
}

func TestLanguage_Default(t *testing.T) {
	ta := newTestApp(t)
	assert.Equal(t, string(model.LanguageIndonesian), language(context.Background(), ta.app))
}
