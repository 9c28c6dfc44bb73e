package validation

import (
	"testing"
)

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		UserID:   42,
		Product:  "Laptop",
		Quantity: 3,
	}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_QuantityBoundary(t *testing.T) {
	v := New()

	req := CreateOrderRequest{UserID: 1, Product: "Widget", Quantity: 1}
	if err := v.Struct(req); err != nil {
		t.Fatalf("quantity=1 must be accepted: %v", err)
	}

	req.Quantity = 0
	if err := v.Struct(req); err == nil {
		t.Fatal("quantity=0 must be rejected")
	}
}

func TestCreateOrderRequest_MissingFields(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		// UserID and Product missing
		Quantity: 2,
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}
