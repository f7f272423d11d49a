package sarama

import "github.com/IBM/sarama"

// message adapts a claimed *sarama.ConsumerMessage to core.Message.
type message struct {
	raw  *sarama.ConsumerMessage
	sess sarama.ConsumerGroupSession
}

func (m *message) Key() []byte    { return m.raw.Key }
func (m *message) Value() []byte  { return m.raw.Value }
func (m *message) Topic() string  { return m.raw.Topic }
func (m *message) Partition() int { return int(m.raw.Partition) }
func (m *message) Offset() int64  { return m.raw.Offset }

func (m *message) Headers() map[string]string {
	h := make(map[string]string, len(m.raw.Headers))
	for _, rh := range m.raw.Headers {
		if rh != nil {
			h[string(rh.Key)] = string(rh.Value)
		}
	}
	return h
}

// Ack marks the message; sarama commits marked offsets periodically and on close.
func (m *message) Ack() error {
	m.sess.MarkMessage(m.raw, "")
	return nil
}

// Nack leaves the message unmarked.
func (m *message) Nack() error {
	return nil
}
