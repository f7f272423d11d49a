package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// message adapts an amqp.Delivery to core.Message. The delivery tag stands
// in for the offset.
type message struct {
	delivery amqp.Delivery
	requeue  bool
}

func (m *message) Key() []byte    { return []byte(m.delivery.RoutingKey) }
func (m *message) Value() []byte  { return m.delivery.Body }
func (m *message) Partition() int { return 0 }
func (m *message) Offset() int64  { return int64(m.delivery.DeliveryTag) }

func (m *message) Topic() string {
	if m.delivery.RoutingKey != "" {
		return m.delivery.RoutingKey
	}
	return m.delivery.Exchange
}

func (m *message) Headers() map[string]string {
	h := make(map[string]string, len(m.delivery.Headers))
	for k, v := range m.delivery.Headers {
		if s, ok := v.(string); ok {
			h[k] = s
		} else {
			h[k] = fmt.Sprintf("%v", v)
		}
	}
	return h
}

func (m *message) Ack() error {
	if err := m.delivery.Ack(false); err != nil {
		return fmt.Errorf("kafkaconsumer/rabbitmq: ack: %w", err)
	}
	return nil
}

// Nack negatively acknowledges the message. If requeue is enabled,
// the message is returned to the queue for redelivery.
func (m *message) Nack() error {
	if err := m.delivery.Nack(false, m.requeue); err != nil {
		return fmt.Errorf("kafkaconsumer/rabbitmq: nack: %w", err)
	}
	return nil
}
