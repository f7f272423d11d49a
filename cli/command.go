// Package cli implements the kafkaconsumer command: it validates the two
// positional arguments, opens a consumer session for the topic and logs
// every message read until the command context is cancelled.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
	"github.com/miladsoleymani/kafkaconsumer/core/middleware"
	"github.com/miladsoleymani/kafkaconsumer/internal/logging"
)

// ErrConsumerFailed is returned when the consumer stopped on an unexpected
// failure. The failure has already been logged.
var ErrConsumerFailed = errors.New("kafkaconsumer: consumer failed")

const (
	bannerText    = "Testando o consumo de mensagens com Kafka"
	usageText     = "Informe 2 parâmetros: no primeiro o IP/porta para testes com o Kafka, no segundo o Topic a ser utilizado no consumo das mensagens..."
	cancelledText = "Cancelada a execução do Consumer..."
	messagePrefix = "Mensagem lida: "
)

type options struct {
	driver   string
	logLevel string
	noColor  bool
}

// NewCommand returns the root command. Logs go to the command's output
// stream so callers and tests can redirect them with SetOut.
func NewCommand() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "kafkaconsumer <broker-address> <topic>",
		Short: "Consume and print the messages of a topic",
		Long: "Joins the consumer group <topic>-group-0, reads the topic from the earliest\n" +
			"uncommitted position and logs each payload until interrupted.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(o.logLevel)
			if err != nil {
				return err
			}
			logger := logging.New(cmd.OutOrStdout(), level, o.noColor)
			return run(cmd.Context(), logger, o.driver, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.driver, "driver", "kafka", "consumer driver ("+strings.Join(broker.Drivers(), ", ")+")")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	return cmd
}

func run(ctx context.Context, logger *slog.Logger, driver string, args []string) error {
	logger.Info(bannerText)

	if len(args) != 2 {
		logger.Error(usageText)
		return nil
	}
	address, topic := args[0], args[1]
	logger.Info("BootstrapServers = " + address)
	logger.Info("Topic = " + topic)

	cfg, err := broker.NewConfig(address, topic)
	if err != nil {
		return failure(logger, err)
	}
	session, err := broker.Open(driver, cfg, logger)
	if err != nil {
		return failure(logger, err)
	}

	counter := &middleware.Counter{}
	r := core.New(session, logger)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics(counter))
	r.Use(middleware.Logging(logger))
	r.Handle(printMessage(logger))

	if err := r.Run(ctx); err != nil {
		return failure(logger, err)
	}
	logger.Warn(cancelledText, "messages", counter.Processed(), "failed", counter.Failed())
	return nil
}

// printMessage logs the payload verbatim and commits the message.
func printMessage(logger *slog.Logger) core.HandlerFunc {
	return func(c core.Context) error {
		logger.Info(messagePrefix + string(c.Value()))

		msg := c.Message()
		logger.Debug("message metadata",
			"topic", c.Topic(), "partition", msg.Partition(), "offset", msg.Offset(), "key", string(c.Key()))
		return c.Ack()
	}
}

func failure(logger *slog.Logger, err error) error {
	logger.Error(fmt.Sprintf("Exceção: %s | Mensagem: %s", core.Category(err), err.Error()))
	return fmt.Errorf("%w: %w", ErrConsumerFailed, err)
}
