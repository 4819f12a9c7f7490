package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ERC20 interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, from, spender common.Address, amount *big.Int) (common.Hash, error)
}

var _ ERC20 = (*Stablecoin)(nil)

// Stablecoin is the ERC-20 token mints are paid in.
type Stablecoin struct {
	*contract
}

func NewStablecoin(address common.Address, client Client) (*Stablecoin, error) {
	c, err := newContract(address, StablecoinABI, client)
	if err != nil {
		return nil, fmt.Errorf("stablecoin abi: %w", err)
	}
	return &Stablecoin{contract: c}, nil
}

func (s *Stablecoin) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return s.callBig(ctx, "balanceOf", owner)
}

func (s *Stablecoin) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return s.callBig(ctx, "allowance", owner, spender)
}

func (s *Stablecoin) Approve(ctx context.Context, from, spender common.Address, amount *big.Int) (common.Hash, error) {
	return s.transact(ctx, from, "approve", spender, amount)
}
