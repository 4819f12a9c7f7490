package mint

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/vitwit/x402cats/clients"
	"github.com/vitwit/x402cats/wallet"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		kind Kind
		msg  string
	}{
		{
			name: "wallet rejection code",
			op:   OpApprove,
			err:  &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "denied"},
			kind: KindUserRejected,
			msg:  "Transaction rejected in wallet",
		},
		{
			name: "rejection by message",
			op:   OpMint,
			err:  errors.New("MetaMask Tx Signature: User denied transaction signature."),
			kind: KindUserRejected,
			msg:  "Transaction rejected in wallet",
		},
		{
			name: "gas",
			op:   OpApprove,
			err:  errors.New("insufficient funds for gas * price + value"),
			kind: KindInsufficientGas,
			msg:  "Insufficient ETH for gas",
		},
		{
			name: "token balance revert",
			op:   OpMint,
			err:  &wallet.ProviderError{Code: 3, Message: "execution reverted: ERC20: transfer amount exceeds balance"},
			kind: KindInsufficientFunds,
			msg:  "Insufficient USDC balance",
		},
		{
			name: "wallet cap revert",
			op:   OpMint,
			err:  fmt.Errorf("send: %w", errors.New("execution reverted: exceeds max per wallet")),
			kind: KindLimitExceeded,
			msg:  "Exceeds max NFTs per wallet",
		},
		{
			name: "sold out",
			op:   OpMint,
			err:  errors.New("execution reverted: exceeds max supply"),
			kind: KindSupplyExhausted,
			msg:  "Not enough NFTs left to mint",
		},
		{
			name: "rpc rate limit is not a wallet cap",
			op:   OpMint,
			err:  errors.New("429 Too Many Requests: rate limit exceeded"),
			kind: KindUnknown,
			msg:  "Mint failed",
		},
		{
			name: "request size limit is not a wallet cap",
			op:   OpApprove,
			err:  errors.New("request size limit reached"),
			kind: KindUnknown,
			msg:  "Approval failed",
		},
		{
			name: "wallet limit revert",
			op:   OpMint,
			err:  errors.New("execution reverted: wallet limit reached"),
			kind: KindLimitExceeded,
			msg:  "Exceeds max NFTs per wallet",
		},
		{
			name: "sale closed revert",
			op:   OpMint,
			err:  &wallet.ProviderError{Code: 3, Message: "execution reverted: mint not active"},
			kind: KindMintInactive,
			msg:  "Minting is not active",
		},
		{
			name: "mined revert",
			op:   OpMint,
			err:  &clients.RevertedError{TxHash: common.Hash{1}, Block: 7},
			kind: KindReverted,
			msg:  "Transaction reverted",
		},
		{
			name: "receipt timeout",
			op:   OpApprove,
			err:  fmt.Errorf("%w: deadline", clients.ErrReceiptTimeout),
			kind: KindTimeout,
			msg:  "Timed out waiting for confirmation",
		},
		{
			name: "unknown approve",
			op:   OpApprove,
			err:  errors.New("nonce too low"),
			kind: KindUnknown,
			msg:  "Approval failed",
		},
		{
			name: "unknown mint",
			op:   OpMint,
			err:  errors.New("connection reset"),
			kind: KindUnknown,
			msg:  "Mint failed",
		},
		{
			name: "no provider",
			op:   OpConnect,
			err:  &wallet.NoProviderError{Tried: []string{"rpc-signer"}},
			kind: KindNoProvider,
			msg:  "No wallet found. Install a wallet or configure a signer",
		},
		{
			name: "chain switch",
			op:   OpConnect,
			err:  &wallet.ChainSwitchError{From: 1, To: 8453, Cause: errors.New("nope")},
			kind: KindChainSwitch,
			msg:  "Please switch your wallet to Base",
		},
		{
			name: "connect rejection keeps generic message",
			op:   OpConnect,
			err:  &wallet.ProviderError{Code: wallet.CodeUserRejected},
			kind: KindUserRejected,
			msg:  "Failed to connect wallet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.op, tt.err)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.msg, f.Message)
			assert.ErrorIs(t, f, tt.err)
		})
	}
}

func TestClassifyKeepsFailure(t *testing.T) {
	orig := limitFailure(OpMint, "Exceeds max 20 NFTs per wallet (you hold 19)")
	f := Classify(OpMint, fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, f)
}
