package confluent

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/kafkaconsumer/broker"
)

func TestConfigMap(t *testing.T) {
	cfg, err := broker.NewConfig("b1:9092,b2:9092", "orders")
	require.NoError(t, err)

	opts := defaults()
	WithConfigValue("fetch.min.bytes", 1)(&opts)
	cm := *configMap(cfg, opts)

	assert.Equal(t, "b1:9092,b2:9092", cm["bootstrap.servers"])
	assert.Equal(t, "orders-group-0", cm["group.id"])
	assert.Equal(t, "earliest", cm["auto.offset.reset"])
	assert.Equal(t, false, cm["enable.auto.commit"])
	assert.Equal(t, 45000, cm["session.timeout.ms"])
	assert.Equal(t, cfg.ClientID, cm["client.id"])
	assert.Equal(t, 1, cm["fetch.min.bytes"])
}

func TestOptsFromConfig(t *testing.T) {
	cfg := broker.Config{Extra: map[string]any{
		"poll_interval":   time.Second,
		"session_timeout": 10 * time.Second,
		"librdkafka":      map[string]string{"debug": "consumer"},
	}}
	opts := defaults()
	for _, fn := range optsFromConfig(cfg) {
		fn(&opts)
	}
	assert.Equal(t, time.Second, opts.pollInterval)
	assert.Equal(t, 10*time.Second, opts.sessionTimeout)
	assert.Equal(t, kafka.ConfigValue("consumer"), opts.overrides["debug"])
}

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(broker.Config{Topic: "t", Group: "g"}, nil)
	assert.Error(t, err)
}

func TestMessageAdapter(t *testing.T) {
	topic := "orders"
	m := &message{raw: &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 1, Offset: 7},
		Key:            []byte("k"),
		Value:          []byte("A"),
		Headers:        []kafka.Header{{Key: "trace", Value: []byte("abc")}},
	}}

	assert.Equal(t, "orders", m.Topic())
	assert.Equal(t, 1, m.Partition())
	assert.EqualValues(t, 7, m.Offset())
	assert.Equal(t, "A", string(m.Value()))
	assert.Equal(t, "abc", m.Headers()["trace"])
	assert.NoError(t, m.Nack())

	m.raw.TopicPartition.Topic = nil
	assert.Empty(t, m.Topic())
}
