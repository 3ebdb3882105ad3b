package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	deliveries    chan amqp.Delivery
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func TestPublishTransition(t *testing.T) {
	ch := &fakeChannel{}
	p := NewProducer(ch)
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishTransition(context.Background(), usecase.TransitionEvent{
		ID:         "evt-1",
		Email:      "a@x.io",
		From:       entity.StatusEmailSent,
		To:         entity.StatusEmailOpened,
		Event:      entity.EventOpened,
		OccurredAt: at,
	})
	require.NoError(t, err)

	assert.Equal(t, ExchangeName, ch.exchange)
	assert.Equal(t, TransitionRoutingKey, ch.key)
	assert.Equal(t, "evt-1", ch.msg.MessageId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "EMAIL_OPENED", body["to"])
	assert.Equal(t, "a@x.io", body["email"])
}

func TestPublishTransitionError(t *testing.T) {
	p := NewProducer(&fakeChannel{err: amqp.ErrClosed})
	err := p.PublishTransition(context.Background(), usecase.TransitionEvent{ID: "x"})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

// MockPaymentHandler
type MockPaymentHandler struct {
	mock.Mock
}

func (m *MockPaymentHandler) OnPaymentSuccess(ctx context.Context, email string) (usecase.TransitionResult, error) {
	args := m.Called(ctx, email)
	return usecase.TransitionResult{}, args.Error(0)
}

func (m *MockPaymentHandler) OnPaymentFailure(ctx context.Context, email string) (usecase.TransitionResult, error) {
	args := m.Called(ctx, email)
	return usecase.TransitionResult{}, args.Error(0)
}

func TestWorkerProcess(t *testing.T) {
	storeDown := fmt.Errorf("%w: %w", usecase.ErrStoreFailure, errors.New("conn reset"))
	invalid := fmt.Errorf("%w: PAYMENT_FAILED on REPLIED", usecase.ErrInvalidTransition)

	tests := []struct {
		name        string
		body        string
		redelivered bool
		setup       func(h *MockPaymentHandler)
		want        verdict
	}{
		{"paid", `{"email":"a@x.io","outcome":"PAID"}`, false, func(h *MockPaymentHandler) {
			h.On("OnPaymentSuccess", mock.Anything, "a@x.io").Return(nil)
		}, ack},
		{"failed lower case", `{"email":"a@x.io","outcome":"failed"}`, false, func(h *MockPaymentHandler) {
			h.On("OnPaymentFailure", mock.Anything, "a@x.io").Return(nil)
		}, ack},
		{"malformed", `{not json`, false, func(*MockPaymentHandler) {}, deadLetter},
		{"missing email", `{"outcome":"PAID"}`, false, func(*MockPaymentHandler) {}, deadLetter},
		{"unknown outcome", `{"email":"a@x.io","outcome":"REFUND"}`, false, func(*MockPaymentHandler) {}, deadLetter},
		{"store failure first time", `{"email":"a@x.io","outcome":"PAID"}`, false, func(h *MockPaymentHandler) {
			h.On("OnPaymentSuccess", mock.Anything, "a@x.io").Return(storeDown)
		}, requeue},
		{"store failure redelivered", `{"email":"a@x.io","outcome":"PAID"}`, true, func(h *MockPaymentHandler) {
			h.On("OnPaymentSuccess", mock.Anything, "a@x.io").Return(storeDown)
		}, deadLetter},
		{"invalid transition", `{"email":"a@x.io","outcome":"FAILED"}`, false, func(h *MockPaymentHandler) {
			h.On("OnPaymentFailure", mock.Anything, "a@x.io").Return(invalid)
		}, ack},
		{"unknown lead", `{"email":"a@x.io","outcome":"PAID"}`, false, func(h *MockPaymentHandler) {
			h.On("OnPaymentSuccess", mock.Anything, "a@x.io").Return(usecase.ErrLeadNotFound)
		}, deadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := new(MockPaymentHandler)
			tt.setup(h)
			w := NewWorker(&fakeChannel{}, h, logger.Nop())

			assert.Equal(t, tt.want, w.process(context.Background(), []byte(tt.body), tt.redelivered))
			h.AssertExpectations(t)
		})
	}
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestWorkerStartSettlesDeliveries(t *testing.T) {
	h := new(MockPaymentHandler)
	h.On("OnPaymentSuccess", mock.Anything, "a@x.io").Return(nil)

	ackr := &fakeAcknowledger{}
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ackr, DeliveryTag: 1, Body: []byte(`{"email":"a@x.io","outcome":"PAID"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ackr, DeliveryTag: 2, Body: []byte(`garbage`)}
	close(ch.deliveries)

	w := NewWorker(ch, h, logger.Nop())
	require.NoError(t, w.Start(context.Background(), PaymentQueue))

	assert.Equal(t, []uint64{1}, ackr.acked)
	assert.Equal(t, []uint64{2}, ackr.nacked)
	assert.Equal(t, []bool{false}, ackr.requeue)
}

func TestWorkerStopsOnContext(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	w := NewWorker(ch, new(MockPaymentHandler), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Start(ctx, PaymentQueue) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
