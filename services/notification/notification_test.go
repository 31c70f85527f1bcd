package notification

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	appointmentRepo "nahio/database/repository/appointment"
	profileRepo "nahio/database/repository/profile"
	"nahio/models"
	"nahio/services/tasks"

	"firebase.google.com/go/v4/messaging"
	"github.com/hibiken/asynq"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func sampleEvent(typ models.AppointmentEventType, actorID string) models.AppointmentEvent {
	date, _ := models.ParseVisitDate("2025-10-20")
	return models.AppointmentEvent{
		ID:   "evt-1",
		Type: typ,
		Appointment: models.Appointment{
			ID: "a1", ScoutID: "s1", InstitutionID: "i1",
			VisitDate: date, TimeSlot: "14:30", Status: models.StatusConfirmed,
		},
		ActorID:    actorID,
		OccurredAt: time.Date(2025, 10, 2, 10, 0, 0, 0, time.UTC),
	}
}

type notifierFunc func(context.Context, models.AppointmentEvent) error

func (f notifierFunc) Notify(ctx context.Context, e models.AppointmentEvent) error { return f(ctx, e) }

func TestMultiJoinsFailures(t *testing.T) {
	calls := 0
	ok := notifierFunc(func(context.Context, models.AppointmentEvent) error { calls++; return nil })
	boom := errors.New("boom")
	bad := notifierFunc(func(context.Context, models.AppointmentEvent) error { calls++; return boom })

	err := Multi{ok, nil, bad, ok}.Notify(context.Background(), sampleEvent(models.EventAppointmentCreated, "s1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.NoError(t, Multi{ok}.Notify(context.Background(), sampleEvent(models.EventAppointmentCreated, "s1")))
}

func TestRender(t *testing.T) {
	msg := Render(sampleEvent(models.EventAppointmentConfirmed, "i1"))
	assert.Equal(t, "Agendamento confirmado", msg.Title)
	assert.Contains(t, msg.Body, "20/10/2025 às 14:30")
}

func TestInboxNotifierAndStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryInbox()
	n := &InboxNotifier{Store: store}

	require.NoError(t, n.Notify(ctx, sampleEvent(models.EventAppointmentCreated, "s1")))
	later := sampleEvent(models.EventAppointmentCancelled, "")
	later.ID = "evt-2"
	later.OccurredAt = later.OccurredAt.Add(time.Hour)
	require.NoError(t, n.Notify(ctx, later))

	inst, err := store.List(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, inst, 2)
	assert.Equal(t, "Agendamento cancelado", inst[0].Title, "newest first")
	assert.Equal(t, models.NotificationAppointment, inst[0].Type)
	assert.Equal(t, "a1", inst[0].Data["appointmentId"])
	assert.False(t, inst[0].Read)

	scout, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, scout, 1, "the actor is not notified of its own action")

	require.NoError(t, store.MarkRead(ctx, "i1", inst[1].ID))
	inst, err = store.List(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, inst[1].Read)
	assert.ErrorIs(t, store.MarkRead(ctx, "s1", inst[1].ID), ErrNotificationNotFound)
}

func TestMemoryInboxLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryInbox()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < inboxLimit+5; i++ {
		require.NoError(t, store.Add(ctx, models.Notification{ID: strconv.Itoa(i), UserID: "u", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	list, err := store.List(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, list, inboxLimit)
	assert.Equal(t, base.Add(time.Duration(inboxLimit+4)*time.Minute), list[0].CreatedAt)
}

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "msg-id", f.err
}

func TestPushNotifier(t *testing.T) {
	ctx := context.Background()
	users := profileRepo.NewMemoryProfileRepo()
	require.NoError(t, users.CreateUser(ctx, &models.User{ID: "s1", FCMToken: "token-s1"}))
	require.NoError(t, users.CreateUser(ctx, &models.User{ID: "i1"}))
	sender := &fakeSender{}
	push := &PushNotifier{Sender: sender, Users: users, Logger: zap.NewNop()}

	require.NoError(t, push.Notify(ctx, sampleEvent(models.EventAppointmentConfirmed, "i1")))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "token-s1", sender.sent[0].Token)
	assert.Equal(t, "Agendamento confirmado", sender.sent[0].Notification.Title)
	assert.Equal(t, "appointment.confirmed", sender.sent[0].Data["event"])

	// The institution has no token: skipped without error.
	require.NoError(t, push.Notify(ctx, sampleEvent(models.EventAppointmentCreated, "s1")))
	assert.Len(t, sender.sent, 1)

	sender.err = errors.New("unregistered")
	assert.Error(t, push.Notify(ctx, sampleEvent(models.EventAppointmentConfirmed, "i1")))

	sender.err = nil
	ghost := sampleEvent(models.EventAppointmentConfirmed, "i1")
	ghost.Appointment.ScoutID = "ghost"
	assert.ErrorIs(t, push.Notify(ctx, ghost), profileRepo.ErrNotFound)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEventPublisher(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	pub := &EventPublisher{Writer: w}
	require.NoError(t, pub.Notify(ctx, sampleEvent(models.EventAppointmentConfirmed, "i1")))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "a1", string(msg.Key))
	assert.Equal(t, "evt-1", header(msg, "event_id"))
	assert.Equal(t, "appointment.confirmed", header(msg, "event_type"))
	assert.Contains(t, header(msg, "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Contains(t, string(msg.Value), `"type":"appointment.confirmed"`)
}

func TestTopicAndBrokers(t *testing.T) {
	assert.Equal(t, "nahio.appointments.events", EventsTopic("nahio"))
	assert.Equal(t, "appointments.events", EventsTopic(""))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitBrokers(" k1:9092, ,k2:9092"))
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, f.err
}

func TestQueueNotifierAndReminders(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{}

	require.NoError(t, (&QueueNotifier{Queue: q}).Notify(ctx, sampleEvent(models.EventAppointmentCreated, "s1")))
	require.NoError(t, (&ReminderQueue{Queue: q}).ScheduleReminder(ctx, sampleEvent(models.EventAppointmentConfirmed, "i1").Appointment, time.Now()))
	require.Len(t, q.tasks, 2)
	assert.Equal(t, tasks.TypeDispatchNotification, q.tasks[0].Type())
	assert.Equal(t, tasks.TypeSendReminder, q.tasks[1].Type())

	q.err = asynq.ErrTaskIDConflict
	assert.NoError(t, (&QueueNotifier{Queue: q}).Notify(ctx, sampleEvent(models.EventAppointmentCreated, "s1")))
	q.err = errors.New("redis down")
	assert.Error(t, (&QueueNotifier{Queue: q}).Notify(ctx, sampleEvent(models.EventAppointmentCreated, "s1")))
}

func TestDispatcherReminder(t *testing.T) {
	ctx := context.Background()
	repo := appointmentRepo.NewMemoryAppointmentRepo()
	date, _ := models.ParseVisitDate("2025-10-20")
	appt := &models.Appointment{ScoutID: "s1", InstitutionID: "i1", VisitDate: date, TimeSlot: "14:30", Status: models.StatusPending}
	require.NoError(t, repo.Create(ctx, appt))

	var got []models.AppointmentEvent
	d := &Dispatcher{
		Deliver: notifierFunc(func(_ context.Context, e models.AppointmentEvent) error {
			got = append(got, e)
			return nil
		}),
		Appointments: repo,
		Logger:       zap.NewNop(),
	}
	task, _, err := tasks.NewReminderTask(models.ReminderPayload{AppointmentID: appt.ID}, time.Now())
	require.NoError(t, err)

	require.NoError(t, d.HandleReminder(ctx, task))
	assert.Empty(t, got, "pending visits get no reminder")

	_, err = repo.UpdateStatus(ctx, appt.ID, models.StatusPending, models.StatusConfirmed)
	require.NoError(t, err)
	require.NoError(t, d.HandleReminder(ctx, task))
	require.Len(t, got, 1)
	assert.Equal(t, models.EventAppointmentReminder, got[0].Type)
	assert.Equal(t, "reminder:"+appt.ID, got[0].ID, "redelivered reminders carry the same id")
	assert.ElementsMatch(t, []string{"s1", "i1"}, got[0].Recipients())

	missing, _, err := tasks.NewReminderTask(models.ReminderPayload{AppointmentID: "ghost"}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, d.HandleReminder(ctx, missing))

	bad := asynq.NewTask(tasks.TypeSendReminder, []byte("{"))
	assert.ErrorIs(t, d.HandleReminder(ctx, bad), asynq.SkipRetry)
}

func TestDispatcherDispatch(t *testing.T) {
	boom := errors.New("fcm down")
	d := &Dispatcher{
		Deliver: notifierFunc(func(context.Context, models.AppointmentEvent) error { return boom }),
		Logger:  zap.NewNop(),
	}
	task, _, err := tasks.NewDispatchTask(sampleEvent(models.EventAppointmentCreated, "s1"))
	require.NoError(t, err)
	assert.ErrorIs(t, d.HandleDispatch(context.Background(), task), boom)
}

func TestDispatchRetryKeepsOneInboxEntry(t *testing.T) {
	ctx := context.Background()
	inbox := NewMemoryInbox()
	boom := errors.New("kafka down")
	d := &Dispatcher{
		Deliver: Multi{
			&InboxNotifier{Store: inbox},
			notifierFunc(func(context.Context, models.AppointmentEvent) error { return boom }),
		},
		Logger: zap.NewNop(),
	}
	task, _, err := tasks.NewDispatchTask(sampleEvent(models.EventAppointmentCreated, "s1"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, d.HandleDispatch(ctx, task), boom)
	}
	list, err := inbox.List(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "evt-1:i1", list[0].ID)
}

func TestMemoryInboxAddKeepsFirstWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryInbox()
	entry := models.Notification{ID: "n1", UserID: "u", Title: "first"}
	require.NoError(t, store.Add(ctx, entry))
	require.NoError(t, store.MarkRead(ctx, "u", "n1"))

	entry.Title = "again"
	require.NoError(t, store.Add(ctx, entry))
	list, err := store.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Title)
	assert.True(t, list[0].Read, "a redelivery does not reset the read flag")
}
