package mint

import (
	"errors"
	"strings"

	"github.com/vitwit/x402cats/clients"
	"github.com/vitwit/x402cats/wallet"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindUserRejected      Kind = "user_rejected"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInsufficientGas   Kind = "insufficient_gas"
	KindLimitExceeded     Kind = "limit_exceeded"
	KindSupplyExhausted   Kind = "supply_exhausted"
	KindMintInactive      Kind = "mint_inactive"
	KindNoProvider        Kind = "no_provider"
	KindChainSwitch       Kind = "chain_switch"
	KindReverted          Kind = "reverted"
	KindTimeout           Kind = "timeout"
	KindUnknown           Kind = "unknown"
)

// Operations a failure can come from.
const (
	OpConnect = "connect"
	OpApprove = "approve"
	OpMint    = "mint"
)

var kindMessages = map[Kind]string{
	KindUserRejected:      "Transaction rejected in wallet",
	KindInsufficientFunds: "Insufficient USDC balance",
	KindInsufficientGas:   "Insufficient ETH for gas",
	KindLimitExceeded:     "Exceeds max NFTs per wallet",
	KindSupplyExhausted:   "Not enough NFTs left to mint",
	KindMintInactive:      "Minting is not active",
	KindNoProvider:        "No wallet found. Install a wallet or configure a signer",
	KindChainSwitch:       "Please switch your wallet to Base",
	KindReverted:          "Transaction reverted",
	KindTimeout:           "Timed out waiting for confirmation",
}

var fallbackMessages = map[string]string{
	OpConnect: "Failed to connect wallet",
	OpApprove: "Approval failed",
	OpMint:    "Mint failed",
}

// Failure is a classified workflow error. Message is what the user sees.
type Failure struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify inspects err's codes and message and maps it onto a Kind.
// Connect failures keep the generic connect message unless the cause is
// a missing provider or a declined chain switch.
func Classify(op string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	kind := classifyKind(err)
	msg, ok := kindMessages[kind]
	if !ok || (op == OpConnect && kind != KindNoProvider && kind != KindChainSwitch) {
		msg = fallbackMessages[op]
	}
	if msg == "" {
		msg = "Something went wrong"
	}
	return &Failure{Op: op, Kind: kind, Message: msg, Err: err}
}

func limitFailure(op, msg string) *Failure {
	return &Failure{Op: op, Kind: KindLimitExceeded, Message: msg}
}

func classifyKind(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var noProvider *wallet.NoProviderError
	if errors.As(err, &noProvider) {
		return KindNoProvider
	}
	var switchErr *wallet.ChainSwitchError
	if errors.As(err, &switchErr) {
		return KindChainSwitch
	}
	if wallet.IsUserRejected(err) {
		return KindUserRejected
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "user rejected", "user denied", "rejected the request"):
		return KindUserRejected
	case containsAny(msg, "gas required exceeds", "intrinsic gas", "out of gas", "gas limit", "insufficient funds for gas"):
		return KindInsufficientGas
	case containsAny(msg, "insufficient funds", "exceeds balance", "insufficient allowance", "insufficient balance"):
		return KindInsufficientFunds
	case containsAny(msg, "max per wallet", "per wallet", "wallet limit"):
		return KindLimitExceeded
	case containsAny(msg, "max supply", "sold out"):
		return KindSupplyExhausted
	case containsAny(msg, "mint not active", "minting is not active", "sale not active"):
		return KindMintInactive
	}

	var reverted *clients.RevertedError
	if errors.As(err, &reverted) {
		return KindReverted
	}
	if errors.Is(err, clients.ErrReceiptTimeout) {
		return KindTimeout
	}
	return KindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
