// Package wallet manages the connection to a signing wallet: selecting a
// provider from a ranked list of adapters, requesting account access and
// keeping the wallet on the collection's chain.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Provider is the EIP-1193 request boundary to a wallet.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Closer is implemented by providers holding a connection.
type Closer interface {
	Close()
}

// EIP-1193 and EIP-3085 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902

	CodeInvalidParams = -32602
	CodeInternal      = -32603
)

// ProviderError is a coded error returned by a wallet.
type ProviderError struct {
	Code    int
	Message string
	Data    any
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

// ErrorCode extracts a provider error code from err. It understands
// ProviderError and go-ethereum rpc errors.
func ErrorCode(err error) (int, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return rerr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether the wallet user declined the request.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// call issues method and decodes the result into out.
func call(ctx context.Context, p Provider, out any, method string, params ...any) error {
	raw, err := p.Request(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
