package core

// Message is the broker-agnostic message abstraction.
// Implementations are provided by driver plugins.
type Message interface {
	Key() []byte
	Value() []byte
	Headers() map[string]string

	// Topic, Partition and Offset locate the message in the broker.
	// Drivers without partitions report partition 0.
	Topic() string
	Partition() int
	Offset() int64

	// Ack commits the message position for the consumer group.
	Ack() error

	// Nack leaves the message uncommitted so it is delivered again.
	Nack() error
}
