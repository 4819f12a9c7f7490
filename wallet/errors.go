package wallet

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoAccounts = errors.New("wallet returned no accounts")

// NoProviderError is returned by Connect when no adapter is available.
type NoProviderError struct {
	Tried []string
}

func (e *NoProviderError) Error() string {
	if len(e.Tried) == 0 {
		return "no wallet provider configured"
	}
	return fmt.Sprintf("no wallet provider available (tried %s)", strings.Join(e.Tried, ", "))
}

// ChainSwitchError is returned when the wallet cannot be moved onto the target chain.
type ChainSwitchError struct {
	From  uint64
	To    uint64
	Cause error
}

func (e *ChainSwitchError) Error() string {
	return fmt.Sprintf("switch chain %d -> %d: %v", e.From, e.To, e.Cause)
}

func (e *ChainSwitchError) Unwrap() error {
	return e.Cause
}

// Rejected reports whether the user declined the switch.
func (e *ChainSwitchError) Rejected() bool {
	return IsUserRejected(e.Cause)
}
