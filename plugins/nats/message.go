package nats

import (
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// message adapts a JetStream message to core.Message. The stream sequence
// stands in for the offset; there are no partitions.
type message struct {
	msg jetstream.Msg
}

func (m *message) Key() []byte    { return nil }
func (m *message) Value() []byte  { return m.msg.Data() }
func (m *message) Topic() string  { return m.msg.Subject() }
func (m *message) Partition() int { return 0 }

func (m *message) Offset() int64 {
	md, err := m.msg.Metadata()
	if err != nil {
		return -1
	}
	return int64(md.Sequence.Stream)
}

func (m *message) Headers() map[string]string {
	raw := m.msg.Headers()
	h := make(map[string]string, len(raw))
	for k, v := range raw {
		if len(v) > 0 {
			h[k] = v[0]
		}
	}
	return h
}

func (m *message) Ack() error {
	if err := m.msg.Ack(); err != nil {
		return fmt.Errorf("kafkaconsumer/nats: ack: %w", err)
	}
	return nil
}

// Nack asks the server to redeliver, bounded by MaxDeliver.
func (m *message) Nack() error {
	if err := m.msg.Nak(); err != nil {
		return fmt.Errorf("kafkaconsumer/nats: nack: %w", err)
	}
	return nil
}
