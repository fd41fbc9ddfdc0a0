package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/repository/memory"
)

func thresholdEvent() domain.Event {
	return domain.Event{
		Kind:             domain.EventMaintenanceThreshold,
		EquipmentID:      "eq-1",
		CenterID:         "center-1",
		Type:             "TANK",
		Serial:           "SN-1",
		OccurredAt:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		ThresholdPercent: 80,
		UsageCount:       80,
		UsageLimit:       100,
	}
}

func overdueEvent() domain.Event {
	due := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	return domain.Event{
		Kind:        domain.EventRentalOverdue,
		EquipmentID: "eq-2",
		CenterID:    "center-1",
		Type:        "BCD",
		RentalID:    "r-1",
		RenterName:  "Jane Doe",
		RenterEmail: "jane@example.com",
		DueDate:     &due,
	}
}

// recordingSink collects delivered events.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	delay  time.Duration
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Send(ctx context.Context, ev domain.Event) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDescribe(t *testing.T) {
	title, msg := Describe(thresholdEvent())
	assert.Equal(t, "Maintenance threshold reached", title)
	assert.Equal(t, "TANK SN-1 reached 80% of its usage limit (80 of 100 uses)", msg)

	ev := thresholdEvent()
	ev.ThresholdPercent = 100
	title, _ = Describe(ev)
	assert.Equal(t, "Maintenance due", title)

	title, msg = Describe(overdueEvent())
	assert.Equal(t, "Rental overdue", title)
	assert.Equal(t, "BCD rented by Jane Doe was due back on 2025-03-05", msg)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("smtp down")}
	ok := &recordingSink{}
	d := NewDispatcher(Options{}, failing, ok)

	d.Publish(thresholdEvent(), overdueEvent())
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 2, ok.count())
}

func TestDispatcher_DeliverReportsSinkFailure(t *testing.T) {
	smtpDown := errors.New("smtp down")
	failing := &recordingSink{err: smtpDown}
	ok := &recordingSink{}
	d := NewDispatcher(Options{}, failing, ok)
	defer d.Close(context.Background())

	err := d.deliver(overdueEvent())
	assert.ErrorIs(t, err, smtpDown)
	assert.Contains(t, err.Error(), "recording: smtp down")
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())

	assert.NoError(t, NewDispatcher(Options{}, &recordingSink{}).deliver(thresholdEvent()))
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	slow := &recordingSink{delay: 200 * time.Millisecond}
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1}, slow)

	start := time.Now()
	for i := 0; i < 10; i++ {
		d.Publish(thresholdEvent())
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Greater(t, d.Dropped(), uint64(0))

	require.NoError(t, d.Close(context.Background()))
	d.Publish(thresholdEvent()) // after close: dropped, no panic
}

func TestDispatcher_SendTimeout(t *testing.T) {
	stuck := &recordingSink{delay: time.Second}
	d := NewDispatcher(Options{SendTimeout: 20 * time.Millisecond}, stuck)
	d.Publish(thresholdEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 0, stuck.count())
}

func TestStoreSink(t *testing.T) {
	store := memory.NewStore()
	sink := NewStoreSink(store.Notifications)

	require.NoError(t, sink.Send(context.Background(), thresholdEvent()))

	notes, total, err := store.Notifications.ListByCenter(context.Background(), "center-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Equal(t, domain.EventMaintenanceThreshold, notes[0].Kind)
	assert.Equal(t, "80", notes[0].Attributes["threshold_percent"])
	assert.Equal(t, "eq-1", notes[0].EquipmentID)
}

func TestKafkaSink(t *testing.T) {
	t.Run("Publishes JSON keyed by equipment", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var ev domain.Event
			if err := json.Unmarshal(val, &ev); err != nil {
				return err
			}
			if ev.Kind != domain.EventRentalOverdue || ev.RentalID != "r-1" {
				return errors.New("unexpected payload")
			}
			return nil
		})

		sink := NewKafkaSink(producer, "equipment-events")
		require.NoError(t, sink.Send(context.Background(), overdueEvent()))
		require.NoError(t, sink.Close())
	})

	t.Run("Broker failure", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		sink := NewKafkaSink(producer, "equipment-events")
		err := sink.Send(context.Background(), thresholdEvent())
		assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
		require.NoError(t, sink.Close())
	})
}

type MockMailClient struct {
	mock.Mock
}

func (m *MockMailClient) Send(email *mail.SGMailV3) (*rest.Response, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rest.Response), args.Error(1)
}

func sentTo(addr string) any {
	return mock.MatchedBy(func(m *mail.SGMailV3) bool {
		return len(m.Personalizations) == 1 && len(m.Personalizations[0].To) == 1 && m.Personalizations[0].To[0].Address == addr
	})
}

func TestEmailSink(t *testing.T) {
	cfg := EmailConfig{
		FromEmail:         "alerts@divecenter.example",
		FromName:          "Dive Center",
		StaffEmails:       map[string]string{"center-1": "staff@blue-hole.example"},
		DefaultStaffEmail: "ops@divecenter.example",
		NotifyRenters:     true,
	}

	t.Run("Staff and renter on overdue", func(t *testing.T) {
		client := new(MockMailClient)
		client.On("Send", sentTo("staff@blue-hole.example")).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil).Once()
		client.On("Send", sentTo("jane@example.com")).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil).Once()

		sink := NewEmailSinkWithClient(client, cfg)
		require.NoError(t, sink.Send(context.Background(), overdueEvent()))
		client.AssertExpectations(t)
	})

	t.Run("Default address for other centers", func(t *testing.T) {
		client := new(MockMailClient)
		client.On("Send", sentTo("ops@divecenter.example")).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil).Once()

		ev := thresholdEvent()
		ev.CenterID = "center-9"
		sink := NewEmailSinkWithClient(client, cfg)
		require.NoError(t, sink.Send(context.Background(), ev))
		client.AssertExpectations(t)
	})

	t.Run("SendGrid rejects", func(t *testing.T) {
		client := new(MockMailClient)
		client.On("Send", mock.Anything).Return(&rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil)

		sink := NewEmailSinkWithClient(client, cfg)
		err := sink.Send(context.Background(), thresholdEvent())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

type MockPushClient struct {
	mock.Mock
}

func (m *MockPushClient) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func TestPushSink(t *testing.T) {
	client := new(MockPushClient)
	client.On("Send", mock.Anything, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Topic == "center-center-1" && m.Notification.Title == "Rental overdue" && m.Data["rental_id"] == "r-1"
	})).Return("projects/demo/messages/1", nil)

	sink := NewPushSink(client, "")
	require.NoError(t, sink.Send(context.Background(), overdueEvent()))
	client.AssertExpectations(t)

	failing := new(MockPushClient)
	failing.On("Send", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))
	err := NewPushSink(failing, "staff-").Send(context.Background(), thresholdEvent())
	assert.ErrorContains(t, err, "staff-center-1")
}
