package orders

import "time"

// Order statuses. PENDING moves to exactly one of PROCESSED or FAILED and
// never reverts.
const (
	StatusPending   = "PENDING"
	StatusProcessed = "PROCESSED"
	StatusFailed    = "FAILED"
)

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// Order is the record stored in the orders DynamoDB table and the payload
// carried on every order event. JSON tags match the public API shape,
// dynamodbav tags match the table schema.
type Order struct {
	OrderID     string     `json:"orderId" dynamodbav:"order_id"` // PK, idempotency key, event partition key
	UserID      int        `json:"userId" dynamodbav:"user_id"`
	Product     string     `json:"product" dynamodbav:"product"`
	Quantity    int        `json:"quantity" dynamodbav:"quantity"`
	Status      string     `json:"status" dynamodbav:"status"` // PENDING | PROCESSED | FAILED
	CreatedAt   time.Time  `json:"createdAt" dynamodbav:"created_at"`
	ProcessedAt *time.Time `json:"processedAt,omitempty" dynamodbav:"processed_at,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty" dynamodbav:"failed_at,omitempty"`
	Error       string     `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// Terminal reports whether the order has reached a final status.
func (o *Order) Terminal() bool {
	return o.Status == StatusProcessed || o.Status == StatusFailed
}
