package apiclient

import (
	"context"
	"net/http"

	"interviewcoach/internal/domain"
)

// Order is a pending credit purchase to be completed at the payment gateway.
type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// PaymentProof is what the gateway hands back after checkout.
type PaymentProof struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (c *Client) CreateOrder(ctx context.Context) (Order, error) {
	var out Order
	if err := c.doJSON(ctx, "create-order", http.MethodPost, "/payments/create-order", nil, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// VerifyPayment confirms a checkout and returns the new paid credit balance
// when the server reports it.
func (c *Client) VerifyPayment(ctx context.Context, proof PaymentProof) (int, error) {
	switch {
	case proof.OrderID == "":
		return 0, domain.NewValidationError("order_id", "order id is required")
	case proof.PaymentID == "":
		return 0, domain.NewValidationError("payment_id", "payment id is required")
	case proof.Signature == "":
		return 0, domain.NewValidationError("signature", "signature is required")
	}
	var out struct {
		PaidInterviews          *int `json:"paid_interviews"`
		PaidInterviewsRemaining *int `json:"paid_interviews_remaining"`
	}
	if err := c.doJSON(ctx, "verify-payment", http.MethodPost, "/payments/verify-payment", proof, &out); err != nil {
		return 0, err
	}
	return firstInt(out.PaidInterviews, out.PaidInterviewsRemaining), nil
}
