package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/miladsoleymani/kafkaconsumer/cli"

	_ "github.com/miladsoleymani/kafkaconsumer/plugins/confluent"
	_ "github.com/miladsoleymani/kafkaconsumer/plugins/franz"
	_ "github.com/miladsoleymani/kafkaconsumer/plugins/kafka"
	_ "github.com/miladsoleymani/kafkaconsumer/plugins/nats"
	_ "github.com/miladsoleymani/kafkaconsumer/plugins/rabbitmq"
	_ "github.com/miladsoleymani/kafkaconsumer/plugins/sarama"
)

func main() {
	// The first interrupt cancels the read loop; the command then closes the
	// session and returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrConsumerFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
