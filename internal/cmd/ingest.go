package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quickroute/internal/config"
	"quickroute/internal/ingest"
	"quickroute/internal/log"
	"quickroute/internal/metrics"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the NATS ingest daemon",
		Long: `Ingest subscribes to a NATS subject carrying JPEG envelopes, decodes
each one and stores the track in the archive. Instances sharing the
queue group split the load.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context())
		},
	}
	defaults := ingest.DefaultConfig()
	cmd.Flags().StringVar(&config.NatsURL, "nats-url",
		defaults.URL, "NATS server URL")
	cmd.Flags().StringVar(&config.IngestSubject, "subject",
		defaults.Subject, "subject carrying ingest envelopes")
	cmd.Flags().StringVar(&config.IngestQueue, "queue",
		defaults.Queue, "queue group name")
	cmd.Flags().StringVar(&config.ResultSubject, "result-subject",
		defaults.ResultSubject, "subject for decode results (empty disables)")
	cmd.Flags().IntVar(&config.MetricsPort, "metrics-port",
		defaults.MetricsPort, "Prometheus /metrics port (0 disables)")
	return cmd
}

func runIngest(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ch, err := openClickHouse(ctx)
	if err != nil {
		return err
	}
	if ch != nil {
		defer ch.Close()
	}

	consumer := ingest.NewConsumer(ingest.Config{
		URL:           config.NatsURL,
		Subject:       config.IngestSubject,
		Queue:         config.IngestQueue,
		ResultSubject: config.ResultSubject,
		MetricsPort:   config.MetricsPort,
	}, store, ch, metrics.New())

	if err := consumer.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	consumer.Stop()
	return nil
}
