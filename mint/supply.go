package mint

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

// Supply tracks the minted count shown to users. It only moves forward:
// reads from lagging nodes never lower it.
type Supply struct {
	mu      sync.Mutex
	current *big.Int
	max     *big.Int
}

func NewSupply(maxSupply int64) *Supply {
	return &Supply{current: new(big.Int), max: big.NewInt(maxSupply)}
}

// Observe records a total supply read and reports whether it advanced.
func (s *Supply) Observe(n *big.Int) bool {
	if n == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.Cmp(s.current) <= 0 {
		return false
	}
	s.current = new(big.Int).Set(n)
	return true
}

// Minted records a confirmed mint of n tokens. before is the count taken
// before the mint was sent and read a fresh total, if any. The result is
// the largest of before+n, read and the current count, so a poll that
// already saw the new tokens does not count them twice.
func (s *Supply) Minted(before *big.Int, n int64, read *big.Int) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := big.NewInt(n)
	if before != nil {
		next.Add(next, before)
	}
	if read != nil && read.Cmp(next) > 0 {
		next.Set(read)
	}
	if s.current.Cmp(next) > 0 {
		next.Set(s.current)
	}
	s.current = next
	return new(big.Int).Set(next)
}

func (s *Supply) Current() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.current)
}

func (s *Supply) Max() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.max)
}

// SetMax replaces the collection cap with the on-chain value.
func (s *Supply) SetMax(n *big.Int) {
	if n == nil || n.Sign() <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.max = new(big.Int).Set(n)
}

// Remaining is how many tokens can still be minted.
func (s *Supply) Remaining() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	left := new(big.Int).Sub(s.max, s.current)
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}

// Display renders "minted/max", e.g. "102/5555".
func (s *Supply) Display() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s/%s", s.current, s.max)
}

// Progress is the minted fraction in percent.
func (s *Supply) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max.Sign() == 0 {
		return 0
	}
	return decimal.NewFromBigInt(s.current, 2).
		Div(decimal.NewFromBigInt(s.max, 0)).
		InexactFloat64()
}

// NextTokenID is the id the next mint will receive.
func (s *Supply) NextTokenID() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Add(s.current, big.NewInt(1))
}
