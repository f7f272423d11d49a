package broker_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
	"github.com/miladsoleymani/kafkaconsumer/internal/mock"
)

func TestNewConfig(t *testing.T) {
	cfg, err := broker.NewConfig("localhost:9092", "orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "orders", cfg.Topic)
	assert.Equal(t, "orders-group-0", cfg.Group)
	assert.Equal(t, broker.OffsetEarliest, cfg.OffsetReset)
	assert.True(t, strings.HasPrefix(cfg.ClientID, "kafkaconsumer-"))
}

func TestGroupID(t *testing.T) {
	for _, topic := range []string{"orders", "a.b.c", "with space", "x-group-0"} {
		cfg, err := broker.NewConfig("h:1", topic)
		require.NoError(t, err)
		assert.Equal(t, topic+"-group-0", cfg.Group)
		assert.Equal(t, broker.GroupID(topic), cfg.Group)
	}
}

func TestNewConfig_AddressList(t *testing.T) {
	cfg, err := broker.NewConfig(" b1:9092, b2:9092,,", "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
		topic   string
	}{
		{"empty address", "", "orders"},
		{"only commas", ",,", "orders"},
		{"empty topic", "localhost:9092", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := broker.NewConfig(tt.address, tt.topic)
			assert.Error(t, err)
		})
	}
}

func TestConfig_ValidateOffsetReset(t *testing.T) {
	cfg := broker.Config{Brokers: []string{"h:1"}, Topic: "t", Group: "g", OffsetReset: "middle"}
	assert.Error(t, cfg.Validate())

	cfg.OffsetReset = broker.OffsetLatest
	assert.NoError(t, cfg.Validate())

	cfg.OffsetReset = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, broker.OffsetEarliest, cfg.OffsetReset)
}

func TestRegistry(t *testing.T) {
	mc := mock.NewConsumer()
	var seen broker.Config
	broker.Register("registry-test", func(cfg broker.Config, _ *slog.Logger) (core.Consumer, error) {
		seen = cfg
		return mc, nil
	})
	assert.Contains(t, broker.Drivers(), "registry-test")

	cfg, err := broker.NewConfig("localhost:9092", "orders")
	require.NoError(t, err)

	s, err := broker.Open("registry-test", cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "orders", s.Topic())
	assert.Equal(t, "orders-group-0", seen.Group)
	assert.Equal(t, core.StateUninitialized, s.State())
}

func TestRegistry_FactoryError(t *testing.T) {
	boom := errors.New("bad config")
	broker.Register("registry-fail", func(broker.Config, *slog.Logger) (core.Consumer, error) {
		return nil, boom
	})
	cfg, err := broker.NewConfig("localhost:9092", "orders")
	require.NoError(t, err)

	_, err = broker.Open("registry-fail", cfg, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Unknown(t *testing.T) {
	cfg, err := broker.NewConfig("localhost:9092", "orders")
	require.NoError(t, err)

	_, err = broker.Open("does-not-exist", cfg, nil)
	assert.ErrorIs(t, err, broker.ErrUnknownDriver)
}
