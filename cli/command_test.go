package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
	"github.com/miladsoleymani/kafkaconsumer/internal/mock"
)

// syncBuffer guards a bytes.Buffer written by the command goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type brokerDownError struct{ addr string }

func (e *brokerDownError) Error() string { return "broker " + e.addr + " unreachable" }

// registerMock registers a driver named after the test that hands out c and
// records the config it was built with.
func registerMock(t *testing.T, c *mock.Consumer) (string, *broker.Config, *atomic.Int32) {
	t.Helper()
	name := "mock-" + strings.ReplaceAll(t.Name(), "/", "-")
	var got broker.Config
	var calls atomic.Int32
	broker.Register(name, func(cfg broker.Config, _ *slog.Logger) (core.Consumer, error) {
		calls.Add(1)
		got = cfg
		return c, nil
	})
	return name, &got, &calls
}

func execute(ctx context.Context, out *syncBuffer, args ...string) error {
	cmd := NewCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--no-color"))
	return cmd.ExecuteContext(ctx)
}

func TestUsageError(t *testing.T) {
	c := mock.NewConsumer()
	driver, _, calls := registerMock(t, c)

	for _, args := range [][]string{nil, {"localhost:9092"}, {"localhost:9092", "orders", "extra"}} {
		var out syncBuffer
		err := execute(context.Background(), &out, append(args, "--driver", driver)...)

		require.NoError(t, err, "usage error is soft")
		assert.Contains(t, out.String(), bannerText)
		assert.Contains(t, out.String(), "Informe 2 parâmetros")
		assert.NotContains(t, out.String(), "BootstrapServers")
	}
	assert.Zero(t, calls.Load())
	assert.Zero(t, c.Subscribes())
}

func TestConsumeInOrderThenCancel(t *testing.T) {
	c := mock.NewConsumer()
	driver, cfg, _ := registerMock(t, c)

	a, b := mock.Text("orders", "A"), mock.Text("orders", "B")
	c.Deliver(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- execute(ctx, &out, "localhost:9092", "orders", "--driver", driver) }()

	require.Eventually(t, func() bool { return a.Acked() && b.Acked() }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return after cancellation")
	}

	assert.Equal(t, "orders-group-0", cfg.Group)
	assert.Equal(t, broker.OffsetEarliest, cfg.OffsetReset)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "orders", c.Topic())
	assert.Equal(t, 1, c.Closes())

	logs := out.String()
	for _, want := range []string{"BootstrapServers = localhost:9092", "Topic = orders", cancelledText} {
		assert.Contains(t, logs, want)
	}
	assert.Equal(t, 1, strings.Count(logs, "Mensagem lida: A"))
	assert.Equal(t, 1, strings.Count(logs, "Mensagem lida: B"))
	assert.Less(t, strings.Index(logs, "Mensagem lida: A"), strings.Index(logs, "Mensagem lida: B"))
	assert.Less(t, strings.Index(logs, "Topic = orders"), strings.Index(logs, "Mensagem lida: A"))
}

func TestCancelWhileWaiting(t *testing.T) {
	c := mock.NewConsumer()
	driver, _, _ := registerMock(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- execute(ctx, &out, "localhost:9092", "idle", "--driver", driver) }()

	require.Eventually(t, func() bool { return c.Subscribes() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, 1, c.Closes())
	assert.Contains(t, out.String(), cancelledText)
	assert.NotContains(t, out.String(), "Mensagem lida")
	assert.NotContains(t, out.String(), "Exceção")
}

func TestSubscribeFailure(t *testing.T) {
	c := mock.NewConsumer()
	c.SubscribeErr = &brokerDownError{addr: "localhost:9092"}
	driver, _, _ := registerMock(t, c)

	var out syncBuffer
	err := execute(context.Background(), &out, "localhost:9092", "orders", "--driver", driver)

	require.ErrorIs(t, err, ErrConsumerFailed)
	var down *brokerDownError
	assert.True(t, errors.As(err, &down))
	assert.Equal(t, 1, c.Closes())

	logs := out.String()
	assert.Contains(t, logs, "Exceção: *cli.brokerDownError | Mensagem: ")
	assert.Contains(t, logs, "broker localhost:9092 unreachable")
	assert.NotContains(t, logs, cancelledText)
}

func TestReadFailure(t *testing.T) {
	c := mock.NewConsumer()
	driver, _, _ := registerMock(t, c)
	c.Deliver(mock.Text("orders", "A"))
	c.Stop(&brokerDownError{addr: "localhost:9092"})

	var out syncBuffer
	err := execute(context.Background(), &out, "localhost:9092", "orders", "--driver", driver)

	require.ErrorIs(t, err, ErrConsumerFailed)
	logs := out.String()
	assert.Contains(t, logs, "Mensagem lida: A")
	assert.Contains(t, logs, "Exceção: *cli.brokerDownError")
	assert.Equal(t, 1, c.Closes())
}

func TestUnknownDriver(t *testing.T) {
	var out syncBuffer
	err := execute(context.Background(), &out, "localhost:9092", "orders", "--driver", "carrier-pigeon")

	require.ErrorIs(t, err, ErrConsumerFailed)
	require.ErrorIs(t, err, broker.ErrUnknownDriver)
	assert.Contains(t, out.String(), "Exceção: ")
	assert.Contains(t, out.String(), "carrier-pigeon")
}

func TestInvalidLogLevel(t *testing.T) {
	var out syncBuffer
	err := execute(context.Background(), &out, "localhost:9092", "orders", "--log-level", "loud")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConsumerFailed)
}
