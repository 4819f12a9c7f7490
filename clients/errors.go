package clients

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// RevertedError reports a mined transaction with a failed status.
type RevertedError struct {
	TxHash common.Hash
	Block  uint64
}

func (e *RevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted in block %d", e.TxHash.Hex(), e.Block)
}
