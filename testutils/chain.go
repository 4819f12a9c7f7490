// Package testutils provides an in-memory chain that answers wallet
// provider requests for the collection and stablecoin contracts.
package testutils

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/x402cats/clients"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/wallet"
)

var (
	CollectionAddress = common.HexToAddress("0x86F81966e14dA17193CC3F3d6903184730F36681")
	StablecoinAddress = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	DefaultAccount    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

// CodeExecutionReverted is the JSON-RPC code nodes use for reverts.
const CodeExecutionReverted = 3

// Chain is a fake wallet provider backed by in-memory contract state.
type Chain struct {
	mu sync.Mutex

	chainID uint64
	known   map[uint64]bool
	account common.Address

	supply       *big.Int
	maxSupply    *big.Int
	maxPerWallet *big.Int
	price        *big.Int
	mintActive   bool

	nftBalance  map[common.Address]*big.Int
	coinBalance map[common.Address]*big.Int
	allowance   map[[2]common.Address]*big.Int

	block        uint64
	nonce        uint64
	receipts     map[common.Hash]*types.Receipt
	pending      map[common.Hash]int
	receiptDelay int

	failNext   map[string]error
	revertNext bool
	calls      []string

	collectionABI abi.ABI
	stablecoinABI abi.ABI
}

// NewChain returns a Base chain with the collection at 100/5555 minted,
// a 20 per-wallet cap, a 3 USDC price and 100 USDC in the account.
func NewChain(account common.Address) *Chain {
	c := &Chain{
		chainID:      types.BaseChainID,
		known:        map[uint64]bool{types.BaseChainID: true},
		account:      account,
		supply:       big.NewInt(100),
		maxSupply:    big.NewInt(5555),
		maxPerWallet: big.NewInt(20),
		price:        big.NewInt(3_000_000),
		mintActive:   true,
		nftBalance:   make(map[common.Address]*big.Int),
		coinBalance:  map[common.Address]*big.Int{account: big.NewInt(100_000_000)},
		allowance:    make(map[[2]common.Address]*big.Int),
		block:        1000,
		receipts:     make(map[common.Hash]*types.Receipt),
		pending:      make(map[common.Hash]int),
		failNext:     make(map[string]error),
	}
	c.collectionABI, _ = abi.JSON(strings.NewReader(clients.CollectionABI))
	c.stablecoinABI, _ = abi.JSON(strings.NewReader(clients.StablecoinABI))
	return c
}

// SetChain puts the wallet on id, registering it as switchable when known is set.
func (c *Chain) SetChain(id uint64, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = id
	if known {
		c.known[id] = true
	}
}

// Forget removes id from the chains the wallet can switch to.
func (c *Chain) Forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.known, id)
}

func (c *Chain) ChainID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainID
}

func (c *Chain) SetSupply(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supply = big.NewInt(n)
}

func (c *Chain) Supply() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.supply)
}

func (c *Chain) SetMintActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mintActive = active
}

// SetMintPrice sets the per-token price in stablecoin base units.
func (c *Chain) SetMintPrice(price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = big.NewInt(price)
}

func (c *Chain) SetAllowance(owner common.Address, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowance[[2]common.Address{owner, CollectionAddress}] = big.NewInt(amount)
}

func (c *Chain) Allowance(owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.allowanceOf(owner, CollectionAddress))
}

func (c *Chain) SetCoinBalance(owner common.Address, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coinBalance[owner] = big.NewInt(amount)
}

func (c *Chain) SetNFTBalance(owner common.Address, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nftBalance[owner] = big.NewInt(n)
}

func (c *Chain) NFTBalance(owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(balanceOf(c.nftBalance, owner))
}

// SetReceiptDelay makes each new receipt appear only after n null polls.
func (c *Chain) SetReceiptDelay(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiptDelay = n
}

// FailNext makes the next request for method return err.
func (c *Chain) FailNext(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext[method] = err
}

// RejectNext makes the next request for method fail as a user rejection.
func (c *Chain) RejectNext(method string) {
	c.FailNext(method, &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."})
}

// RevertNext mines the next transaction with a failed status.
func (c *Chain) RevertNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertNext = true
}

// Calls returns the methods requested so far.
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count returns how many times method was requested.
func (c *Chain) Count(method string) int {
	n := 0
	for _, m := range c.Calls() {
		if m == method {
			n++
		}
	}
	return n
}

func (c *Chain) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, method)
	if err, ok := c.failNext[method]; ok {
		delete(c.failNext, method)
		return nil, err
	}

	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return json.Marshal([]common.Address{c.account})

	case "eth_chainId":
		return json.Marshal(hexutil.Uint64(c.chainID))

	case "wallet_switchEthereumChain":
		var p types.SwitchChainParams
		if err := decode(params, 0, &p); err != nil {
			return nil, err
		}
		id, err := hexutil.DecodeUint64(p.ChainID)
		if err != nil {
			return nil, &wallet.ProviderError{Code: wallet.CodeInvalidParams, Message: err.Error()}
		}
		if !c.known[id] {
			return nil, &wallet.ProviderError{Code: wallet.CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
		}
		c.chainID = id
		return json.RawMessage("null"), nil

	case "wallet_addEthereumChain":
		var p types.ChainParams
		if err := decode(params, 0, &p); err != nil {
			return nil, err
		}
		c.known[p.ID()] = true
		c.chainID = p.ID()
		return json.RawMessage("null"), nil

	case "eth_call":
		var args types.TxArgs
		if err := decode(params, 0, &args); err != nil {
			return nil, err
		}
		out, err := c.view(args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Bytes(out))

	case "eth_sendTransaction":
		var args types.TxArgs
		if err := decode(params, 0, &args); err != nil {
			return nil, err
		}
		hash, err := c.send(args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := decode(params, 0, &hash); err != nil {
			return nil, err
		}
		if c.pending[hash] > 0 {
			c.pending[hash]--
			return json.RawMessage("null"), nil
		}
		r, ok := c.receipts[hash]
		if !ok {
			return json.RawMessage("null"), nil
		}
		return json.Marshal(r)

	default:
		return nil, &wallet.ProviderError{Code: wallet.CodeUnsupportedMethod, Message: "unsupported method " + method}
	}
}

func (c *Chain) method(args types.TxArgs) (*abi.Method, []interface{}, error) {
	if args.To == nil || len(args.Data) < 4 {
		return nil, nil, &wallet.ProviderError{Code: wallet.CodeInvalidParams, Message: "missing to or data"}
	}

	var contract abi.ABI
	switch *args.To {
	case CollectionAddress:
		contract = c.collectionABI
	case StablecoinAddress:
		contract = c.stablecoinABI
	default:
		return nil, nil, fmt.Errorf("no contract at %s", args.To.Hex())
	}

	m, err := contract.MethodById(args.Data[:4])
	if err != nil {
		return nil, nil, err
	}
	in, err := m.Inputs.Unpack(args.Data[4:])
	if err != nil {
		return nil, nil, err
	}
	return m, in, nil
}

func (c *Chain) view(args types.TxArgs) ([]byte, error) {
	m, in, err := c.method(args)
	if err != nil {
		return nil, err
	}

	var out interface{}
	switch {
	case *args.To == CollectionAddress && m.Name == "totalSupply":
		out = new(big.Int).Set(c.supply)
	case m.Name == "MAX_SUPPLY":
		out = c.maxSupply
	case m.Name == "MAX_PER_WALLET":
		out = c.maxPerWallet
	case m.Name == "mintPrice":
		out = c.price
	case m.Name == "mintActive":
		out = c.mintActive
	case *args.To == CollectionAddress && m.Name == "balanceOf":
		out = new(big.Int).Set(balanceOf(c.nftBalance, in[0].(common.Address)))
	case *args.To == StablecoinAddress && m.Name == "balanceOf":
		out = new(big.Int).Set(balanceOf(c.coinBalance, in[0].(common.Address)))
	case m.Name == "allowance":
		out = new(big.Int).Set(c.allowanceOf(in[0].(common.Address), in[1].(common.Address)))
	default:
		return nil, fmt.Errorf("%s is not a view", m.Name)
	}
	return m.Outputs.Pack(out)
}

func (c *Chain) send(args types.TxArgs) (common.Hash, error) {
	if args.From == nil || *args.From != c.account {
		return common.Hash{}, &wallet.ProviderError{Code: wallet.CodeUnauthorized, Message: "unknown account"}
	}
	from := *args.From

	m, in, err := c.method(args)
	if err != nil {
		return common.Hash{}, err
	}

	revert := c.revertNext
	c.revertNext = false

	switch m.Name {
	case "approve":
		if !revert {
			c.allowance[[2]common.Address{from, in[0].(common.Address)}] = new(big.Int).Set(in[1].(*big.Int))
		}
	case "mint":
		if err := c.mint(from, in[0].(*big.Int), revert); err != nil {
			return common.Hash{}, err
		}
	default:
		return common.Hash{}, fmt.Errorf("%s is not supported", m.Name)
	}

	c.nonce++
	c.block++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], c.nonce)
	hash := crypto.Keccak256Hash(from.Bytes(), seed[:])

	status := uint64(types.ReceiptStatusSuccessful)
	if revert {
		status = types.ReceiptStatusFailed
	}
	c.receipts[hash] = &types.Receipt{
		TxHash:      hash,
		BlockNumber: (*hexutil.Big)(new(big.Int).SetUint64(c.block)),
		Status:      hexutil.Uint64(status),
		GasUsed:     hexutil.Uint64(52_000),
	}
	c.pending[hash] = c.receiptDelay
	return hash, nil
}

// mint applies the collection's checks in the order the contract does.
func (c *Chain) mint(from common.Address, quantity *big.Int, revert bool) error {
	if !c.mintActive {
		return reverted("mint not active")
	}
	if new(big.Int).Add(c.supply, quantity).Cmp(c.maxSupply) > 0 {
		return reverted("exceeds max supply")
	}
	if new(big.Int).Add(balanceOf(c.nftBalance, from), quantity).Cmp(c.maxPerWallet) > 0 {
		return reverted("exceeds max per wallet")
	}
	cost := new(big.Int).Mul(c.price, quantity)
	if c.allowanceOf(from, CollectionAddress).Cmp(cost) < 0 {
		return reverted("ERC20: insufficient allowance")
	}
	if balanceOf(c.coinBalance, from).Cmp(cost) < 0 {
		return reverted("ERC20: transfer amount exceeds balance")
	}
	if revert {
		return nil
	}

	c.supply = new(big.Int).Add(c.supply, quantity)
	c.nftBalance[from] = new(big.Int).Add(balanceOf(c.nftBalance, from), quantity)
	c.coinBalance[from] = new(big.Int).Sub(balanceOf(c.coinBalance, from), cost)
	key := [2]common.Address{from, CollectionAddress}
	c.allowance[key] = new(big.Int).Sub(c.allowanceOf(from, CollectionAddress), cost)
	return nil
}

func (c *Chain) allowanceOf(owner, spender common.Address) *big.Int {
	if v, ok := c.allowance[[2]common.Address{owner, spender}]; ok {
		return v
	}
	return new(big.Int)
}

func balanceOf(m map[common.Address]*big.Int, owner common.Address) *big.Int {
	if v, ok := m[owner]; ok {
		return v
	}
	return new(big.Int)
}

func reverted(reason string) error {
	return &wallet.ProviderError{Code: CodeExecutionReverted, Message: "execution reverted: " + reason}
}

func decode(params []any, i int, out any) error {
	if i >= len(params) {
		return &wallet.ProviderError{Code: wallet.CodeInvalidParams, Message: "missing params"}
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
