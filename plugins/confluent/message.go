package confluent

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// message adapts a *kafka.Message to core.Message.
type message struct {
	raw      *kafka.Message
	consumer *kafka.Consumer
}

func (m *message) Key() []byte    { return m.raw.Key }
func (m *message) Value() []byte  { return m.raw.Value }
func (m *message) Partition() int { return int(m.raw.TopicPartition.Partition) }
func (m *message) Offset() int64  { return int64(m.raw.TopicPartition.Offset) }

func (m *message) Topic() string {
	if m.raw.TopicPartition.Topic == nil {
		return ""
	}
	return *m.raw.TopicPartition.Topic
}

func (m *message) Headers() map[string]string {
	h := make(map[string]string, len(m.raw.Headers))
	for _, kh := range m.raw.Headers {
		h[kh.Key] = string(kh.Value)
	}
	return h
}

// Ack synchronously commits the offset following this message.
func (m *message) Ack() error {
	if _, err := m.consumer.CommitMessage(m.raw); err != nil {
		return fmt.Errorf("kafkaconsumer/confluent: commit offset: %w", err)
	}
	return nil
}

// Nack leaves the offset uncommitted.
func (m *message) Nack() error {
	return nil
}
