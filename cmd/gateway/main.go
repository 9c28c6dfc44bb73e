package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamcart/order-pipeline/internal/aws"
	"github.com/streamcart/order-pipeline/internal/config"
	"github.com/streamcart/order-pipeline/internal/events"
	"github.com/streamcart/order-pipeline/internal/handlers"
	"github.com/streamcart/order-pipeline/internal/logger"
	"github.com/streamcart/order-pipeline/internal/orders"
	"github.com/streamcart/order-pipeline/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New("gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		log.Error("failed to init aws clients", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	publisher := events.NewPublisher(clients.SQS, events.QueueMap{
		events.TopicOrderCreated: cfg.CreatedQueueURL,
	})
	hub := ws.NewHub(log)

	// terminal events flow back through the channel; relay them to viewers
	var wg sync.WaitGroup
	fanouts := []struct {
		topic    events.Topic
		queueURL string
		event    string
	}{
		{events.TopicOrderProcessed, cfg.ProcessedQueueURL, "orderProcessed"},
		{events.TopicOrderFailed, cfg.FailedQueueURL, "orderFailed"},
	}
	for _, f := range fanouts {
		sub := events.NewSubscriber(clients.SQS, f.topic, f.queueURL, fanoutHandler(hub, f.event), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sub.Run(ctx)
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	handlers.Register(r, handlers.Config{
		Store:     store,
		Publisher: publisher,
		Hub:       hub,
		ListLimit: cfg.ListLimit,
		Logger:    log,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Info("gateway listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
	}

	wg.Wait()
	hub.Close()
	log.Info("gateway stopped")
}

// fanoutHandler decodes a terminal order event and pushes it to viewers.
func fanoutHandler(hub *ws.Hub, event string) events.Handler {
	return func(ctx context.Context, msg events.Message) error {
		var order orders.Order
		if err := json.Unmarshal(msg.Body, &order); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Topic, err)
		}
		hub.Broadcast(event, order)
		return nil
	}
}
