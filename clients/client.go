// Package clients binds the collection and stablecoin contracts to a
// wallet provider. Reads go through eth_call, writes through
// eth_sendTransaction from the connected account.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vitwit/x402cats/types"
)

// Client is the EIP-1193 request surface. wallet.Provider satisfies it.
type Client interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// contract is an address plus its parsed ABI.
type contract struct {
	address common.Address
	abi     abi.ABI
	client  Client
}

func newContract(address common.Address, abiJSON string, client Client) (*contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &contract{address: address, abi: parsed, client: client}, nil
}

func (c *contract) Address() common.Address {
	return c.address
}

// call runs a view method at the latest block and returns its outputs.
func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	to := c.address
	raw, err := c.client.Request(ctx, "eth_call", types.TxArgs{To: &to, Data: data}, "latest")
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result from %s", method, c.address.Hex())
	}
	return c.abi.Unpack(method, out)
}

func (c *contract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, vals[0])
	}
	return v, nil
}

// transact submits a state-changing call signed by from.
func (c *contract) transact(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	to := c.address
	raw, err := c.client.Request(ctx, "eth_sendTransaction", types.TxArgs{From: &from, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decode tx hash: %w", err)
	}
	return hash, nil
}
