package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/x402cats/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// ValidateX402Response checks a payment-schema document against its struct tags
func ValidateX402Response(doc *types.X402Response) error {
	if err := validate.Struct(doc); err != nil {
		return &types.Error{
			Code:    types.ErrInvalidSchema,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	for i := range doc.Accepts {
		if err := doc.Accepts[i].Validate(); err != nil {
			return &types.Error{
				Code:    types.ErrInvalidSchema,
				Message: err.Error(),
			}
		}
	}

	return nil
}

// ParseX402Response parses and validates a payment-schema document from JSON
func ParseX402Response(data []byte) (*types.X402Response, error) {
	var doc types.X402Response

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidSchema,
			Message: fmt.Sprintf("failed to parse payment schema: %v", err),
		}
	}

	if err := ValidateX402Response(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// SerializeX402Response converts a payment-schema document to JSON
func SerializeX402Response(doc *types.X402Response) ([]byte, error) {
	return json.Marshal(doc)
}

// NormalizeJSON formats JSON with consistent indentation
func NormalizeJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
