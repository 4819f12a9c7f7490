package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxArgs is the transaction object for eth_call and eth_sendTransaction.
type TxArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// Receipt holds the eth_getTransactionReceipt fields the workflow reads.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	Status      hexutil.Uint64 `json:"status"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

const (
	ReceiptStatusFailed     = 0
	ReceiptStatusSuccessful = 1
)

func (r *Receipt) Succeeded() bool {
	return uint64(r.Status) == ReceiptStatusSuccessful
}
