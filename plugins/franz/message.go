package franz

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// message adapts a *kgo.Record to core.Message.
type message struct {
	raw    *kgo.Record
	client *kgo.Client
	ctx    context.Context
}

func (m *message) Key() []byte    { return m.raw.Key }
func (m *message) Value() []byte  { return m.raw.Value }
func (m *message) Topic() string  { return m.raw.Topic }
func (m *message) Partition() int { return int(m.raw.Partition) }
func (m *message) Offset() int64  { return m.raw.Offset }

func (m *message) Headers() map[string]string {
	h := make(map[string]string, len(m.raw.Headers))
	for _, rh := range m.raw.Headers {
		h[rh.Key] = string(rh.Value)
	}
	return h
}

// Ack commits the record offset for the group.
func (m *message) Ack() error {
	if err := m.client.CommitRecords(m.ctx, m.raw); err != nil {
		return fmt.Errorf("kafkaconsumer/franz: commit offset: %w", err)
	}
	return nil
}

// Nack leaves the record uncommitted.
func (m *message) Nack() error {
	return nil
}
