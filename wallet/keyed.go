package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/x402cats/types"
)

// Backend is the node access a KeyedProvider needs. *ethclient.Client
// satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// DialFunc opens a backend for a chain's RPC URL.
type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

// ConfirmFunc is asked before a transaction is signed. Returning false
// rejects the request with CodeUserRejected.
type ConfirmFunc func(ctx context.Context, tx types.TxArgs) bool

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ Provider = (*KeyedProvider)(nil)

// KeyedProvider is a wallet backed by a local private key. It signs
// transactions itself and keeps a table of chains it can switch between.
type KeyedProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	dial    DialFunc
	confirm ConfirmFunc

	mu       sync.Mutex
	chains   map[uint64]types.ChainParams
	backends map[uint64]Backend
	active   uint64
}

// NewKeyedProvider creates a keyed wallet. The first chain is active.
func NewKeyedProvider(key *ecdsa.PrivateKey, chains []types.ChainParams, dial DialFunc, confirm ConfirmFunc) (*KeyedProvider, error) {
	if len(chains) == 0 {
		return nil, errors.New("keyed wallet needs at least one chain")
	}
	if dial == nil {
		dial = dialEthclient
	}

	k := &KeyedProvider{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		dial:     dial,
		confirm:  confirm,
		chains:   make(map[uint64]types.ChainParams, len(chains)),
		backends: make(map[uint64]Backend),
	}
	for i, c := range chains {
		id := c.ID()
		if id == 0 || len(c.RPCURLs) == 0 {
			return nil, fmt.Errorf("chain %q: chain id and rpc url required", c.ChainName)
		}
		k.chains[id] = c
		if i == 0 {
			k.active = id
		}
	}
	return k, nil
}

func (k *KeyedProvider) Address() common.Address {
	return k.address
}

func (k *KeyedProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return json.Marshal([]common.Address{k.address})

	case "eth_chainId":
		k.mu.Lock()
		id := k.active
		k.mu.Unlock()
		return json.Marshal(hexutil.Uint64(id))

	case "wallet_switchEthereumChain":
		var p types.SwitchChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		if err := k.switchChain(p.ChainID); err != nil {
			return nil, err
		}
		return json.RawMessage("null"), nil

	case "wallet_addEthereumChain":
		var p types.ChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		if err := k.addChain(p); err != nil {
			return nil, err
		}
		return json.RawMessage("null"), nil

	case "eth_call":
		var args types.TxArgs
		if err := decodeParam(params, 0, &args); err != nil {
			return nil, err
		}
		return k.ethCall(ctx, args)

	case "eth_sendTransaction":
		var args types.TxArgs
		if err := decodeParam(params, 0, &args); err != nil {
			return nil, err
		}
		hash, err := k.sendTransaction(ctx, args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := decodeParam(params, 0, &hash); err != nil {
			return nil, err
		}
		return k.receipt(ctx, hash)

	default:
		return nil, &ProviderError{Code: CodeUnsupportedMethod, Message: "unsupported method " + method}
	}
}

func (k *KeyedProvider) switchChain(hexID string) error {
	id, err := hexutil.DecodeUint64(hexID)
	if err != nil {
		return &ProviderError{Code: CodeInvalidParams, Message: "invalid chainId"}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.chains[id]; !ok {
		return &ProviderError{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("Unrecognized chain ID %q", hexID)}
	}
	k.active = id
	return nil
}

// addChain registers the chain and makes it active.
func (k *KeyedProvider) addChain(p types.ChainParams) error {
	id := p.ID()
	if id == 0 || len(p.RPCURLs) == 0 {
		return &ProviderError{Code: CodeInvalidParams, Message: "chainId and rpcUrls are required"}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.chains[id] = p
	k.active = id
	return nil
}

func (k *KeyedProvider) backend(ctx context.Context) (Backend, uint64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	id := k.active
	if b, ok := k.backends[id]; ok {
		return b, id, nil
	}
	b, err := k.dial(ctx, k.chains[id].RPCURLs[0])
	if err != nil {
		return nil, 0, &ProviderError{Code: CodeDisconnected, Message: err.Error()}
	}
	k.backends[id] = b
	return b, id, nil
}

func (k *KeyedProvider) ethCall(ctx context.Context, args types.TxArgs) (json.RawMessage, error) {
	b, _, err := k.backend(ctx)
	if err != nil {
		return nil, err
	}

	out, err := b.CallContract(ctx, toCallMsg(k.address, args), nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hexutil.Bytes(out))
}

func (k *KeyedProvider) sendTransaction(ctx context.Context, args types.TxArgs) (common.Hash, error) {
	if args.From != nil && *args.From != k.address {
		return common.Hash{}, &ProviderError{Code: CodeUnauthorized, Message: "unknown account " + args.From.Hex()}
	}
	if k.confirm != nil && !k.confirm(ctx, args) {
		return common.Hash{}, &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
	}

	b, chainID, err := k.backend(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	msg := toCallMsg(k.address, args)

	nonce, err := b.PendingNonceAt(ctx, k.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	gas := msg.Gas
	if gas == 0 {
		// Estimation surfaces reverts ("execution reverted: ...") and
		// "insufficient funds" before anything is signed.
		gas, err = b.EstimateGas(ctx, msg)
		if err != nil {
			return common.Hash{}, err
		}
	}

	tip, err := b.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
	}
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	cid := new(big.Int).SetUint64(chainID)
	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   cid,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        args.To,
		Value:     msg.Value,
		Data:      args.Data,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(cid), k.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := b.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (k *KeyedProvider) receipt(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	b, _, err := k.backend(ctx)
	if err != nil {
		return nil, err
	}

	r, err := b.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return json.RawMessage("null"), nil
	}
	if err != nil {
		return nil, err
	}

	out := types.Receipt{
		TxHash:  r.TxHash,
		Status:  hexutil.Uint64(r.Status),
		GasUsed: hexutil.Uint64(r.GasUsed),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = (*hexutil.Big)(r.BlockNumber)
	}
	return json.Marshal(out)
}

func (k *KeyedProvider) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for id, b := range k.backends {
		if c, ok := b.(interface{ Close() }); ok {
			c.Close()
		}
		delete(k.backends, id)
	}
}

func toCallMsg(from common.Address, args types.TxArgs) ethereum.CallMsg {
	msg := ethereum.CallMsg{
		From: from,
		To:   args.To,
		Data: args.Data,
	}
	if args.Value != nil {
		msg.Value = args.Value.ToInt()
	}
	if args.Gas != nil {
		msg.Gas = uint64(*args.Gas)
	}
	return msg
}

// decodeParam round-trips params[i] through JSON so Go values and raw
// messages decode the same way.
func decodeParam(params []any, i int, out any) error {
	if i >= len(params) {
		return &ProviderError{Code: CodeInvalidParams, Message: fmt.Sprintf("missing param %d", i)}
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return &ProviderError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// KeyedAdapter opens a KeyedProvider from a hex private key.
type KeyedAdapter struct {
	PrivateKey string
	Chains     []types.ChainParams
	Rank       int
	Dial       DialFunc
	Confirm    ConfirmFunc
}

func (a KeyedAdapter) Name() string    { return "local-key" }
func (a KeyedAdapter) Priority() int   { return a.Rank }
func (a KeyedAdapter) Available() bool { return a.PrivateKey != "" }

func (a KeyedAdapter) Open(context.Context) (Provider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(a.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	k, err := NewKeyedProvider(key, a.Chains, a.Dial, a.Confirm)
	if err != nil {
		return nil, err
	}
	return k, nil
}
