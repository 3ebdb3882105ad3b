package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

const (
	OutcomePaid   = "PAID"
	OutcomeFailed = "FAILED"
)

// PaymentEvent is what the payment processor publishes on q.payment_events.
type PaymentEvent struct {
	Email   string `json:"email"`
	Outcome string `json:"outcome"`
}

// PaymentHandler is satisfied by usecase.TrackingUseCase.
type PaymentHandler interface {
	OnPaymentSuccess(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentFailure(ctx context.Context, email string) (usecase.TransitionResult, error)
}

// Consumer is the slice of *amqp.Channel the worker needs.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type verdict int

const (
	ack verdict = iota
	requeue
	deadLetter
)

type Worker struct {
	Channel Consumer
	Handler PaymentHandler
	log     *logger.Logger
}

func NewWorker(ch Consumer, handler PaymentHandler, log *logger.Logger) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		log:     log.WithComponent("payment_worker"),
	}
}

// Start consumes until ctx ends or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.log.Info("consuming", slog.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				w.log.Warn("delivery channel closed", slog.String("queue", queueName))
				return nil
			}
			w.settle(d, w.process(ctx, d.Body, d.Redelivered))
		}
	}
}

func (w *Worker) settle(d amqp.Delivery, v verdict) {
	var err error
	switch v {
	case ack:
		err = d.Ack(false)
	case requeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		w.log.Error("settle delivery failed", slog.Any("error", err))
	}
}

// process decides what happens to one message. Store failures get one
// requeue; the redelivered flag stops a second loop.
func (w *Worker) process(ctx context.Context, body []byte, redelivered bool) verdict {
	var ev PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.Email == "" {
		w.log.Warn("malformed payment event", slog.String("body", string(body)))
		return deadLetter
	}

	var err error
	switch strings.ToUpper(ev.Outcome) {
	case OutcomePaid:
		_, err = w.Handler.OnPaymentSuccess(ctx, ev.Email)
	case OutcomeFailed:
		_, err = w.Handler.OnPaymentFailure(ctx, ev.Email)
	default:
		w.log.Warn("unknown payment outcome", slog.String("email", ev.Email), slog.String("outcome", ev.Outcome))
		return deadLetter
	}

	switch {
	case err == nil:
		return ack
	case usecase.IsTechnicalError(err) && !redelivered:
		w.log.Warn("payment event failed, requeueing", slog.String("email", ev.Email), slog.Any("error", err))
		return requeue
	case usecase.IsTechnicalError(err):
		w.log.Error("payment event failed twice", slog.String("email", ev.Email), slog.Any("error", err))
		return deadLetter
	case usecase.ErrorCode(err) == usecase.ErrInvalidTransition.Code:
		w.log.Info("payment event not applicable", slog.String("email", ev.Email), slog.Any("error", err))
		return ack
	default:
		w.log.Warn("payment event rejected", slog.String("email", ev.Email), slog.Any("error", err))
		return deadLetter
	}
}
