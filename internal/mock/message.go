package mock

import "sync"

// Message is a simple core.Message implementation for testing.
type Message struct {
	K       []byte
	V       []byte
	H       map[string]string
	T       string
	P       int
	O       int64
	AckErr  error
	NackErr error

	mu     sync.Mutex
	acks   int
	nacked bool
}

// Text builds a message carrying value on topic.
func Text(topic, value string) *Message {
	return &Message{T: topic, V: []byte(value)}
}

func (m *Message) Key() []byte                { return m.K }
func (m *Message) Value() []byte              { return m.V }
func (m *Message) Headers() map[string]string { return m.H }
func (m *Message) Topic() string              { return m.T }
func (m *Message) Partition() int             { return m.P }
func (m *Message) Offset() int64              { return m.O }

func (m *Message) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks++
	return m.AckErr
}

func (m *Message) Nack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = true
	return m.NackErr
}

// Acked reports whether Ack was called.
func (m *Message) Acked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acks > 0
}

// Acks returns how many times Ack was called.
func (m *Message) Acks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acks
}

// Nacked reports whether Nack was called.
func (m *Message) Nacked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nacked
}
