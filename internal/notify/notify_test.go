package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeliverer struct {
	got chan Notification
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{got: make(chan Notification, 16)}
}

func (r *recordingDeliverer) Deliver(_ context.Context, n Notification) error {
	r.got <- n
	return nil
}

func (r *recordingDeliverer) next(t *testing.T) Notification {
	t.Helper()
	select {
	case n := <-r.got:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

// fakeTimers hands out channels the test fires by hand.
type fakeTimers struct {
	waits []time.Duration
	chans []chan time.Time
	mu    sync.Mutex
	now   time.Time
}

func (f *fakeTimers) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTimers) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fakeTimers) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	f.waits = append(f.waits, d)
	f.chans = append(f.chans, ch)
	return ch
}

func (f *fakeTimers) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waits)
}

func (f *fakeTimers) Fire(i int) {
	f.mu.Lock()
	ch := f.chans[i]
	f.mu.Unlock()
	ch <- time.Time{}
}

func (f *fakeTimers) Wait(i int) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits[i]
}

func startAgent(t *testing.T, opts ...AgentOption) (*Agent, *recordingDeliverer) {
	t.Helper()
	d := newRecordingDeliverer()
	agent := NewAgent(d, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return agent, d
}

func TestNextReminder(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before", time.Date(2024, 1, 15, 20, 0, 0, 0, loc), time.Date(2024, 1, 15, 21, 0, 0, 0, loc)},
		{"exactly", time.Date(2024, 1, 15, 21, 0, 0, 0, loc), time.Date(2024, 1, 16, 21, 0, 0, 0, loc)},
		{"after", time.Date(2024, 1, 31, 22, 30, 0, 0, loc), time.Date(2024, 2, 1, 21, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextReminder(tt.now, 21, 0))
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("21:00")
	require.NoError(t, err)
	assert.Equal(t, 21, h)
	assert.Equal(t, 0, m)

	for _, bad := range []string{"", "9pm", "25:00", "21:60"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestMessage_JSON(t *testing.T) {
	data, err := ScheduleReminderMessage("en", "21:00").ToJSON()
	require.NoError(t, err)
	msg, err := MessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, KindScheduleReminder, msg.Kind)
	assert.Equal(t, "21:00", msg.At)

	_, err = MessageFromJSON([]byte(`{"kind":"launch_rockets"}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = MessageFromJSON([]byte(`{"kind":"schedule_reminder","at":"soon"}`))
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	assert.Equal(t, "Pengeluaran Anda telah mencapai 87% dari budget bulan ini!", TextFor("id").BudgetBody(87))
	assert.Equal(t, "Your spending has reached 100% of this month's budget!", TextFor("en").BudgetBody(100))
	assert.Equal(t, TextFor("id"), TextFor("fr"))
}

func TestAgent_DeliversImmediateKinds(t *testing.T) {
	agent, d := startAgent(t)
	ctx := context.Background()

	require.NoError(t, agent.Dispatch(ctx, TestMessage("en")))
	assert.Equal(t, Notification{Title: "Test Notification", Body: "If you can see this, notifications are working!", Tag: "test"}, d.next(t))

	require.NoError(t, agent.Dispatch(ctx, BudgetAlertMessage("id", "sudah 90%")))
	n := d.next(t)
	assert.Equal(t, "Peringatan Budget", n.Title)
	assert.Equal(t, "sudah 90%", n.Body)

	require.NoError(t, agent.Dispatch(ctx, BudgetAlertMessage("id", "")))
	assert.Equal(t, TextFor("id").BudgetFallbackBody, d.next(t).Body)

	assert.ErrorIs(t, agent.Dispatch(ctx, Message{Kind: "bogus"}), ErrUnknownKind)
}

func TestAgent_DailyReminder(t *testing.T) {
	timers := &fakeTimers{now: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	agent, d := startAgent(t, WithAgentClock(timers.Now, timers.After))
	ctx := context.Background()

	require.NoError(t, agent.Dispatch(ctx, ScheduleReminderMessage("id", "21:00")))
	require.Eventually(t, func() bool { return timers.Count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, time.Hour, timers.Wait(0))

	next, ok := agent.NextReminder()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC), next)

	timers.Set(time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC))
	timers.Fire(0)
	n := d.next(t)
	assert.Equal(t, "Jangan Lupa!", n.Title)
	assert.Equal(t, "daily-reminder", n.Tag)

	require.Eventually(t, func() bool { return timers.Count() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 24*time.Hour, timers.Wait(1))

	require.NoError(t, agent.Dispatch(ctx, CancelReminderMessage()))
	require.Eventually(t, func() bool {
		_, ok := agent.NextReminder()
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	// A cancelled reminder's timer no longer delivers.
	timers.Fire(1)
	require.NoError(t, agent.Dispatch(ctx, TestMessage("id")))
	assert.Equal(t, "test", d.next(t).Tag)
}

func TestAgent_InboxFull(t *testing.T) {
	agent := NewAgent(newRecordingDeliverer(), WithInboxSize(1))
	ctx := context.Background()

	require.NoError(t, agent.Dispatch(ctx, TestMessage("id")))
	assert.ErrorIs(t, agent.Dispatch(ctx, TestMessage("id")), ErrInboxFull)
}

func TestAgent_Flush(t *testing.T) {
	d := newRecordingDeliverer()
	agent := NewAgent(d)
	ctx := context.Background()

	assert.Equal(t, 0, agent.Flush(ctx))

	require.NoError(t, agent.Dispatch(ctx, TestMessage("en")))
	require.NoError(t, agent.Dispatch(ctx, BudgetAlertMessage("en", "90% used")))
	assert.Equal(t, 2, agent.Flush(ctx))

	assert.Equal(t, "test", d.next(t).Tag)
	assert.Equal(t, "90% used", d.next(t).Body)
	assert.Equal(t, 0, agent.Flush(ctx))
}

func TestLogDeliverer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LogDeliverer{Out: &buf}.Deliver(context.Background(), Notification{Title: "Budget Alert", Body: "90%"}))
	assert.Contains(t, buf.String(), "Budget Alert: 90%")
	assert.NoError(t, LogDeliverer{}.Deliver(context.Background(), Notification{}))
}

type fakeAcknowledger struct {
	acked, nacked, requeued bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked = true; return nil }
func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}
func (f *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()
	body, err := TestMessage("id").ToJSON()
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantNack   bool
		wantQueue  bool
	}{
		{name: "success", body: body, wantAck: true},
		{name: "handler failure requeues", body: body, handlerErr: errors.New("inbox full"), wantNack: true, wantQueue: true},
		{name: "garbage dropped", body: []byte("{"), wantNack: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tt.body},
				func(context.Context, Message) error { return tt.handlerErr })
			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, tt.wantNack, ack.nacked)
			assert.Equal(t, tt.wantQueue, ack.requeued)
		})
	}
}
