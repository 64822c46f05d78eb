package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, n Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, message any) error {
	return m.Called(ctx, topic, key, message).Error(0)
}

func TestQueue_DeliversAndDrainsOnClose(t *testing.T) {
	sender := new(mockSender)
	first := Notification{Destination: "token-1", Title: "a"}
	second := Notification{Destination: "token-2", Title: "b"}
	sender.On("Send", mock.Anything, first).Return(nil).Once()
	sender.On("Send", mock.Anything, second).Return(errors.New("push service down")).Once()

	q := NewQueue(sender, discard, 2, 8, time.Second)
	q.Notify(context.Background(), first)
	q.Notify(context.Background(), second)
	q.Close()

	sender.AssertExpectations(t)
}

func TestQueue_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(nil)

	q := NewQueue(sender, discard, 1, 1, time.Second)

	// One in flight, one buffered, the rest dropped.
	q.Notify(context.Background(), Notification{Title: "1"})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first notification")
	}
	q.Notify(context.Background(), Notification{Title: "2"})
	q.Notify(context.Background(), Notification{Title: "3"})
	q.Notify(context.Background(), Notification{Title: "4"})

	close(release)
	q.Close()

	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestQueue_SendHonoursTimeout(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(context.DeadlineExceeded)

	q := NewQueue(sender, discard, 1, 1, 20*time.Millisecond)
	q.Notify(context.Background(), Notification{Title: "slow"})

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue did not drain")
	}
}

func TestKafkaSender(t *testing.T) {
	pub := new(mockPublisher)
	n := Notification{Destination: "ExponentPushToken[x]", Title: "New paid order"}
	pub.On("Publish", mock.Anything, "notifications.push", n.Destination, n).Return(nil).Once()

	require.NoError(t, NewKafkaSender(pub, "notifications.push").Send(context.Background(), n))
	pub.AssertExpectations(t)
}

func TestKafkaSender_PropagatesError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := NewKafkaSender(pub, "t").Send(context.Background(), Notification{})
	assert.Error(t, err)
}

func TestExpoSender(t *testing.T) {
	var got expoMessage
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"data":{"status":"ok","id":"ticket-1"}}`))
	}))
	defer srv.Close()

	s := NewExpoSender(srv.URL, "expo-token", time.Second)
	err := s.Send(context.Background(), Notification{
		Destination: "ExponentPushToken[abc]",
		Title:       "New paid order",
		Body:        "An order was paid",
		Data:        map[string]string{"orderId": "o-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer expo-token", gotAuth)
	assert.Equal(t, "ExponentPushToken[abc]", got.To)
	assert.Equal(t, "o-1", got.Data["orderId"])
	assert.Equal(t, "default", got.Sound)
}

func TestExpoSender_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected ticket", http.StatusOK, `{"data":{"status":"error","message":"DeviceNotRegistered"}}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed body", http.StatusOK, `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewExpoSender(srv.URL, "", time.Second).Send(context.Background(), Notification{Destination: "t"})
			assert.Error(t, err)
		})
	}
}
