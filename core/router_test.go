package core_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/kafkaconsumer/core"
	"github.com/miladsoleymani/kafkaconsumer/internal/mock"
)

func TestRouter_DeliversInOrderThenCancels(t *testing.T) {
	mc := mock.NewConsumer()
	r := core.New(core.NewSession(mc, "orders", nil), nil)

	got := make(chan string, 4)
	r.Handle(func(c core.Context) error {
		got <- string(c.Value())
		return c.Ack()
	})

	a, b := mock.Text("orders", "A"), mock.Text("orders", "B")
	mc.Deliver(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	assert.Equal(t, "A", <-got)
	assert.Equal(t, "B", <-got)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, 1, a.Acks())
	assert.Equal(t, 1, b.Acks())
	assert.Equal(t, "orders", mc.Topic())
	assert.Equal(t, 1, mc.Closes(), "session must be closed on cancellation")
}

func TestRouter_Middleware(t *testing.T) {
	mc := mock.NewConsumer()
	r := core.New(core.NewSession(mc, "test.topic", nil), nil)

	var order []string
	mw := func(name string) core.MiddlewareFunc {
		return func(next core.HandlerFunc) core.HandlerFunc {
			return func(c core.Context) error {
				order = append(order, name+":before")
				err := next(c)
				order = append(order, name+":after")
				return err
			}
		}
	}
	r.Use(mw("A"))
	r.Use(mw("B"))

	done := make(chan struct{})
	r.Handle(func(c core.Context) error {
		order = append(order, "handler")
		close(done)
		return nil
	})

	mc.Deliver(mock.Text("test.topic", "v"))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	<-done
	cancel()
	require.NoError(t, <-errCh)

	// A wraps B wraps handler.
	assert.Equal(t, []string{"A:before", "B:before", "handler", "B:after", "A:after"}, order)
}

func TestRouter_HandlerErrorKeepsReading(t *testing.T) {
	mc := mock.NewConsumer()
	r := core.New(core.NewSession(mc, "t", nil), nil)

	first, second := mock.Text("t", "bad"), mock.Text("t", "good")
	r.Handle(func(c core.Context) error {
		if string(c.Value()) == "bad" {
			return errors.New("boom")
		}
		return c.Ack()
	})

	mc.Deliver(first, second)
	mc.Stop(nil)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, mock.ErrDrained)
	assert.False(t, first.Acked(), "failed message must stay unacknowledged")
	assert.True(t, second.Acked())
}

func TestRouter_ReadFailureClosesSession(t *testing.T) {
	mc := mock.NewConsumer()
	s := core.NewSession(mc, "t", nil)
	r := core.New(s, nil)
	r.Handle(func(c core.Context) error { return nil })

	boom := errors.New("connection reset")
	mc.Stop(boom)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, core.StateFailed, s.State())
	assert.Equal(t, 1, mc.Closes())
}

func TestRouter_SubscribeFailureSkipsReadLoop(t *testing.T) {
	mc := mock.NewConsumer()
	mc.SubscribeErr = errors.New("unreachable")
	r := core.New(core.NewSession(mc, "t", nil), nil)

	called := false
	r.Handle(func(c core.Context) error {
		called = true
		return nil
	})
	mc.Deliver(mock.Text("t", "never"))

	err := r.Run(context.Background())
	require.ErrorIs(t, err, mc.SubscribeErr)
	assert.False(t, called)
	assert.Equal(t, 1, mc.Closes())
}

func TestRouter_CloseErrorIsReported(t *testing.T) {
	mc := mock.NewConsumer()
	mc.CloseErr = errors.New("leave group failed")
	r := core.New(core.NewSession(mc, "t", nil), nil)
	r.Handle(func(c core.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, mc.CloseErr)
}

func TestRouter_ReadFailureWithCloseErrorKeepsCategory(t *testing.T) {
	mc := mock.NewConsumer()
	mc.CloseErr = errors.New("leave group failed")
	r := core.New(core.NewSession(mc, "t", nil), nil)
	r.Handle(func(c core.Context) error { return nil })

	opErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	mc.Stop(opErr)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, opErr)
	require.ErrorIs(t, err, mc.CloseErr)
	assert.Equal(t, "*net.OpError", core.Category(err))
}

func TestRouter_NoHandler(t *testing.T) {
	r := core.New(core.NewSession(mock.NewConsumer(), "t", nil), nil)
	assert.ErrorIs(t, r.Run(context.Background()), core.ErrNoHandler)
}

func TestRouter_NilSession(t *testing.T) {
	r := core.New(nil, nil)
	r.Handle(func(c core.Context) error { return nil })
	assert.ErrorIs(t, r.Run(context.Background()), core.ErrNoConsumer)
}

func TestRouter_DoubleRun(t *testing.T) {
	mc := mock.NewConsumer()
	r := core.New(core.NewSession(mc, "t", nil), nil)
	r.Handle(func(c core.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return mc.Subscribes() == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, r.Run(ctx), core.ErrAlreadyStarted)
	cancel()
	require.NoError(t, <-errCh)
}
