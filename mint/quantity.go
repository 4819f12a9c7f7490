package mint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// StablecoinDecimals is the precision of the payment token.
const StablecoinDecimals = 6

// Clamp bounds q to [1, max]. A max below 1 is treated as 1.
func Clamp(q, max int64) int64 {
	if max < 1 {
		max = 1
	}
	switch {
	case q < 1:
		return 1
	case q > max:
		return max
	default:
		return q
	}
}

// Request is the quantity the user wants to mint and what it costs.
type Request struct {
	Quantity  int64
	UnitPrice *big.Int
}

// NewRequest builds a request with the quantity clamped to the wallet cap.
func NewRequest(quantity, maxPerWallet int64, unitPrice *big.Int) Request {
	return Request{
		Quantity:  Clamp(quantity, maxPerWallet),
		UnitPrice: new(big.Int).Set(unitPrice),
	}
}

// Total is quantity * unit price in token base units.
func (r Request) Total() *big.Int {
	return new(big.Int).Mul(r.UnitPrice, big.NewInt(r.Quantity))
}

// TotalDisplay renders the total with one decimal, e.g. "9.0 USDC".
func (r Request) TotalDisplay() string {
	return FormatUSDC(r.Total())
}

// Covered reports whether allowance pays for the request.
func (r Request) Covered(allowance *big.Int) bool {
	if allowance == nil {
		return false
	}
	return allowance.Cmp(r.Total()) >= 0
}

// FormatUSDC formats base units as "<amount> USDC" with one decimal place.
func FormatUSDC(amount *big.Int) string {
	return decimal.NewFromBigInt(amount, -StablecoinDecimals).StringFixed(1) + " USDC"
}

func plural(word string, n int64) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func mintingMessage(n int64) string {
	return fmt.Sprintf("Minting %d %s...", n, plural("NFT", n))
}

func mintedMessage(n int64) string {
	return fmt.Sprintf("Successfully minted %d %s!", n, plural("Pixel Cat", n))
}
