package validation

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	UserID   int    `json:"userId" validate:"required"`         // opaque requester id
	Product  string `json:"product" validate:"required"`        // open-ended catalog, no referential check
	Quantity int    `json:"quantity" validate:"required,min=1"` // must be >= 1
}
