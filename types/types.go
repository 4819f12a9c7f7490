package types

import (
	"fmt"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// PaymentScheme represents different payment schemes
type PaymentScheme string

const (
	SchemeExact PaymentScheme = "exact"
)

// PaymentRequirements defines the requirements a resource server accepts for payment.
type PaymentRequirements struct {
	// Scheme of the payment protocol to use (e.g., "exact").
	Scheme string `json:"scheme" validate:"required,oneof=exact"`

	// Network of the blockchain to send payment on (e.g., "base").
	Network string `json:"network" validate:"required"`

	// Maximum amount required to pay for the resource in atomic units of the asset.
	// Represented as a string because Go does not support uint256.
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required,numeric"`

	// URL of the resource to pay for.
	Resource string `json:"resource" validate:"required,url"`

	// Description of the resource being purchased.
	Description string `json:"description" validate:"required"`

	// MIME type of the resource response (e.g., "application/json").
	MimeType string `json:"mimeType" validate:"required"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo" validate:"required,eth_addr"`

	// Maximum time in seconds for the resource server to respond.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds" validate:"gt=0"`

	// Asset symbol or contract of the payment token.
	Asset string `json:"asset" validate:"required"`

	// Shape of the paid resource's request and response.
	OutputSchema *OutputSchema `json:"outputSchema,omitempty"`

	// Extra information about the collection being paid for.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// OutputSchema describes how a client calls the paid resource and what it returns.
type OutputSchema struct {
	Input  InputSchema            `json:"input"`
	Output map[string]FieldSchema `json:"output"`
}

// InputSchema describes the HTTP request a client sends to the paid resource.
type InputSchema struct {
	Type       string                 `json:"type" validate:"required"`
	Method     string                 `json:"method" validate:"required,oneof=GET POST"`
	BodyType   string                 `json:"bodyType,omitempty"`
	BodyFields map[string]FieldSchema `json:"bodyFields,omitempty"`
}

type FieldSchema struct {
	Type        string `json:"type" validate:"required"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// X402Response represents a server response that includes supported payment options.
type X402Response struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version" validate:"eq=1"`

	// List of payment requirements that the resource server accepts.
	Accepts []PaymentRequirements `json:"accepts" validate:"required,min=1,dive"`

	// Message from the resource server indicating any processing error.
	Error string `json:"error,omitempty"`
}

// Error is a coded error surfaced to callers and status displays.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrInvalidSchema     = "INVALID_SCHEMA"
	ErrInvalidTransition = "INVALID_TRANSITION"
	ErrBusy              = "BUSY"
	ErrNotConnected      = "NOT_CONNECTED"
	ErrConfigError       = "CONFIG_ERROR"
)

// Validate checks the fields a payment-discovery crawler relies on.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}

	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}

	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}

	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}

	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}

	if pr.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("paymentRequirements.maxTimeoutSeconds must be greater than 0")
	}

	return nil
}
