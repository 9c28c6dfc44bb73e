package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamcart/order-pipeline/internal/events"
	"github.com/streamcart/order-pipeline/internal/metrics"
	"github.com/streamcart/order-pipeline/internal/orders"
)

// Metric names emitted by the processor.
const (
	metricProcessed = "OrdersProcessed"
	metricFailed    = "OrdersFailed"
	metricDuration  = "ProcessingDuration"
)

// OrderStore is the slice of the store the processor needs.
type OrderStore interface {
	Ensure(ctx context.Context, order orders.Order) (*orders.Order, bool, error)
	MarkProcessed(ctx context.Context, orderID string) (*orders.Order, error)
	MarkFailed(ctx context.Context, orderID, cause string) (*orders.Order, error)
}

// EventPublisher emits terminal events back onto the channel.
type EventPublisher interface {
	Publish(ctx context.Context, topic events.Topic, key string, payload any) error
}

// WorkFunc is the processing step applied to an order. Production wires a
// fixed delay standing in for real business logic; tests substitute instant
// or failing steps.
type WorkFunc func(ctx context.Context, order *orders.Order) error

// Delay returns a WorkFunc that blocks for d, honoring ctx cancellation.
func Delay(d time.Duration) WorkFunc {
	return func(ctx context.Context, _ *orders.Order) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
}

// Processor drives an order from PENDING to a terminal status for every
// order-created event it receives.
type Processor struct {
	store    OrderStore
	pub      EventPublisher
	work     WorkFunc
	recorder metrics.Recorder
	logger   *slog.Logger
}

// New creates a Processor.
func New(store OrderStore, pub EventPublisher, work WorkFunc, recorder metrics.Recorder, logger *slog.Logger) *Processor {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Processor{
		store:    store,
		pub:      pub,
		work:     work,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle consumes one order-created event. Every outcome other than an
// undecodable body is absorbed here: by the time Handle returns, the order has
// a terminal status recorded (or the miss was logged), so the message is
// commit-worthy either way.
func (p *Processor) Handle(ctx context.Context, msg events.Message) error {
	var ev orders.Order
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return fmt.Errorf("invalid order-created payload: %w", err)
	}
	if ev.OrderID == "" {
		return fmt.Errorf("order-created payload missing orderId")
	}

	start := time.Now()
	order, err := p.process(ctx, ev)
	if err != nil {
		p.fail(ctx, ev.OrderID, err)
		return nil
	}
	if order == nil {
		// duplicate delivery of an already-terminal order
		return nil
	}

	p.recorder.Count(ctx, metricProcessed)
	p.recorder.Duration(ctx, metricDuration, time.Since(start))
	p.logger.Info("order processed", slog.String("order_id", order.OrderID))
	return nil
}

// process runs the happy path: materialize, work, terminal update, publish.
// A nil, nil return means the order was already terminal and nothing was done.
func (p *Processor) process(ctx context.Context, ev orders.Order) (*orders.Order, error) {
	pending := orders.Order{
		OrderID:  ev.OrderID,
		UserID:   ev.UserID,
		Product:  ev.Product,
		Quantity: ev.Quantity,
		Status:   orders.StatusPending,
	}

	// The processor is authoritative for recovery: if the producer's write was
	// lost, the event alone is enough to materialize the record.
	order, created, err := p.store.Ensure(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("materialize order: %w", err)
	}
	if !created && order.Terminal() {
		p.logger.Info("duplicate delivery for terminal order",
			slog.String("order_id", order.OrderID),
			slog.String("status", order.Status))
		return nil, nil
	}

	if err := p.work(ctx, order); err != nil {
		return nil, fmt.Errorf("process order: %w", err)
	}

	updated, err := p.store.MarkProcessed(ctx, ev.OrderID)
	if err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}

	if err := p.pub.Publish(ctx, events.TopicOrderProcessed, updated.OrderID, updated); err != nil {
		return nil, fmt.Errorf("publish order-processed: %w", err)
	}

	return updated, nil
}

// fail is the best-effort second write: record FAILED plus the cause and emit
// order-failed. If this path itself fails there is nothing left to do but log;
// the message still commits so it cannot redeliver forever.
func (p *Processor) fail(ctx context.Context, orderID string, cause error) {
	p.logger.Error("order processing failed",
		slog.String("order_id", orderID),
		slog.String("error", cause.Error()))

	failed, err := p.store.MarkFailed(ctx, orderID, cause.Error())
	if err != nil {
		p.logger.Error("failure record not written, dropping",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()))
		return
	}

	if err := p.pub.Publish(ctx, events.TopicOrderFailed, failed.OrderID, failed); err != nil {
		p.logger.Error("order-failed event not published",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()))
	}

	p.recorder.Count(ctx, metricFailed)
}
