package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Collection is the NFT collection contract.
type Collection struct {
	*contract
}

func NewCollection(address common.Address, client Client) (*Collection, error) {
	c, err := newContract(address, CollectionABI, client)
	if err != nil {
		return nil, fmt.Errorf("collection abi: %w", err)
	}
	return &Collection{contract: c}, nil
}

func (c *Collection) TotalSupply(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "totalSupply")
}

func (c *Collection) MaxSupply(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "MAX_SUPPLY")
}

func (c *Collection) MaxPerWallet(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "MAX_PER_WALLET")
}

func (c *Collection) MintPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "mintPrice")
}

func (c *Collection) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return c.callBig(ctx, "balanceOf", owner)
}

func (c *Collection) MintActive(ctx context.Context) (bool, error) {
	vals, err := c.call(ctx, "mintActive")
	if err != nil {
		return false, err
	}
	active, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("mintActive: unexpected result type %T", vals[0])
	}
	return active, nil
}

// Mint submits mint(quantity) from the given account.
func (c *Collection) Mint(ctx context.Context, from common.Address, quantity int64) (common.Hash, error) {
	return c.transact(ctx, from, "mint", big.NewInt(quantity))
}
