package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.funnel"
	DLXName      = "ex.funnel.dlx"

	TransitionRoutingKey = "k.lead.transitioned"

	PaymentQueue      = "q.payment_events"
	PaymentDLQ        = "q.payment_events.dlq"
	PaymentRoutingKey = "k.payment.event"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

// setupTopology declares the funnel exchange, the payment queue and its
// dead-letter pair. Transition consumers bind their own queues.
func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(PaymentDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(PaymentDLQ, PaymentRoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": PaymentRoutingKey,
	}
	if _, err := ch.QueueDeclare(PaymentQueue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(PaymentQueue, PaymentRoutingKey, ExchangeName, false, nil)
}

func (r *RabbitMQ) Healthy() bool {
	return r.Conn != nil && !r.Conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	return r.Conn.Close()
}
