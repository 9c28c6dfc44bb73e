package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamcart/order-pipeline/internal/aws"
	"github.com/streamcart/order-pipeline/internal/config"
	"github.com/streamcart/order-pipeline/internal/events"
	"github.com/streamcart/order-pipeline/internal/logger"
	"github.com/streamcart/order-pipeline/internal/metrics"
	"github.com/streamcart/order-pipeline/internal/orders"
	"github.com/streamcart/order-pipeline/internal/processor"
)

func main() {
	cfg := config.Load()
	log := logger.New("processor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		log.Error("failed to init aws clients", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	publisher := events.NewPublisher(clients.SQS, events.QueueMap{
		events.TopicOrderProcessed: cfg.ProcessedQueueURL,
		events.TopicOrderFailed:    cfg.FailedQueueURL,
	})
	recorder := metrics.NewCloudWatchRecorder(clients.CloudWatch, cfg.MetricsNamespace, log)

	proc := processor.New(store, publisher, processor.Delay(cfg.ProcessingDelay), recorder, log)
	sub := events.NewSubscriber(clients.SQS, events.TopicOrderCreated, cfg.CreatedQueueURL, proc.Handle, log)

	log.Info("processor starting", slog.Duration("processing_delay", cfg.ProcessingDelay))
	if err := sub.Run(ctx); err != nil {
		log.Error("consume loop failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("processor stopped")
}
