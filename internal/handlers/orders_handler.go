package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streamcart/order-pipeline/internal/events"
	"github.com/streamcart/order-pipeline/internal/orders"
	"github.com/streamcart/order-pipeline/internal/validation"
)

// OrderStore is the slice of the store the gateway needs.
type OrderStore interface {
	Ensure(ctx context.Context, order orders.Order) (*orders.Order, bool, error)
	List(ctx context.Context, status string, limit int) ([]orders.Order, error)
}

// EventPublisher emits order-created events.
type EventPublisher interface {
	Publish(ctx context.Context, topic events.Topic, key string, payload any) error
}

// Broadcaster pushes live updates to connected viewers.
type Broadcaster interface {
	Broadcast(event string, order orders.Order)
	HandleUpgrade(w http.ResponseWriter, r *http.Request)
}

// Config groups dependencies for the gateway routes.
type Config struct {
	Store     OrderStore
	Publisher EventPublisher
	Hub       Broadcaster
	ListLimit int
	Logger    *slog.Logger
}

// Register wires the gateway routes.
func Register(r *gin.Engine, cfg Config) {
	v := validation.New()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", func(c *gin.Context) {
		cfg.Hub.HandleUpgrade(c.Writer, c.Request)
	})

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		order := orders.Order{
			OrderID:   uuid.NewString(),
			UserID:    req.UserID,
			Product:   req.Product,
			Quantity:  req.Quantity,
			Status:    orders.StatusPending,
			CreatedAt: time.Now().UTC(),
		}

		created, _, err := cfg.Store.Ensure(ctx, order)
		if err != nil {
			cfg.Logger.Error("order persistence failed",
				slog.String("order_id", order.OrderID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "store unavailable"})
			return
		}

		if err := cfg.Publisher.Publish(ctx, events.TopicOrderCreated, created.OrderID, created); err != nil {
			// the record exists but will never be processed: a known
			// at-least-once gap, surfaced rather than masked
			cfg.Logger.Error("order persisted but event publish failed",
				slog.String("order_id", created.OrderID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "publish failed"})
			return
		}

		// fire-and-forget: a fan-out miss must not fail the request
		cfg.Hub.Broadcast("orderCreated", *created)

		cfg.Logger.Info("order accepted",
			slog.String("order_id", created.OrderID),
			slog.Int("user_id", created.UserID))
		c.JSON(http.StatusCreated, gin.H{"success": true, "order": created})
	})

	r.GET("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		status := c.Query("status")
		if status != "" && !orders.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status filter"})
			return
		}

		list, err := cfg.Store.List(ctx, status, cfg.ListLimit)
		if err != nil {
			cfg.Logger.Error("order listing failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "store unavailable"})
			return
		}
		if list == nil {
			list = []orders.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	})
}
