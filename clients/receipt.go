package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/x402cats/types"
)

const DefaultPollInterval = 2 * time.Second

// WaitMined polls for the transaction receipt until it is mined or ctx
// ends. A failed status is returned as *RevertedError with the receipt.
func WaitMined(ctx context.Context, client Client, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := fetchReceipt(ctx, client, hash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, waitErr(ctx)
			}
			return nil, err
		}
		if receipt != nil {
			if !receipt.Succeeded() {
				var block uint64
				if receipt.BlockNumber != nil {
					block = receipt.BlockNumber.ToInt().Uint64()
				}
				return receipt, &RevertedError{TxHash: hash, Block: block}
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, waitErr(ctx)
		case <-ticker.C:
		}
	}
}

// waitErr reports a deadline as ErrReceiptTimeout and passes
// cancellation through unchanged.
func waitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrReceiptTimeout, ctx.Err())
	}
	return ctx.Err()
}

func fetchReceipt(ctx context.Context, client Client, hash common.Hash) (*types.Receipt, error) {
	raw, err := client.Request(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r types.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}
