package models

import "github.com/shopspring/decimal"

// InitiatePaymentRequest represents a request to start a payment with
// the external gateway
type InitiatePaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	OrderRef string          `json:"order_ref"`
}

// InitiatePaymentResponse is the gateway's handle for a started payment
type InitiatePaymentResponse struct {
	AuthorityID string `json:"authority_id"`
	RedirectURL string `json:"redirect_url"`
}

// VerifyPaymentRequest represents a request to verify a gateway payment
type VerifyPaymentRequest struct {
	AuthorityID string          `json:"authority_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// VerifyPaymentResponse is the gateway's verification outcome
type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	RefID   string `json:"ref_id,omitempty"`
}
