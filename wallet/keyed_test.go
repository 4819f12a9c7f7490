package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402cats/types"
)

// anvil's first dev account
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeBackend struct {
	mu      sync.Mutex
	chainID *big.Int
	sent    []*gethtypes.Transaction
	gas     uint64
	gasErr  error
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return append([]byte{0xca, 0xfe}, msg.Data...), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{Number: big.NewInt(10), BaseFee: big.NewInt(5_000_000)}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return &gethtypes.Receipt{TxHash: hash, Status: gethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(11), GasUsed: tx.Gas()}, nil
		}
	}
	return nil, ethereum.NotFound
}

func newKeyed(t *testing.T, confirm ConfirmFunc) (*KeyedProvider, map[string]*fakeBackend) {
	t.Helper()

	backends := map[string]*fakeBackend{}
	dial := func(_ context.Context, url string) (Backend, error) {
		b, ok := backends[url]
		if !ok {
			b = &fakeBackend{chainID: big.NewInt(int64(types.BaseChainID)), gas: 60_000}
			backends[url] = b
		}
		return b, nil
	}

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	k, err := NewKeyedProvider(key, []types.ChainParams{types.BaseMainnet()}, dial, confirm)
	require.NoError(t, err)
	return k, backends
}

func TestKeyedAccountsAndChain(t *testing.T) {
	ctx := context.Background()
	k, _ := newKeyed(t, nil)

	var accounts []common.Address
	require.NoError(t, call(ctx, k, &accounts, "eth_requestAccounts"))
	assert.Equal(t, []common.Address{common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")}, accounts)

	id, err := readChainID(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, types.BaseChainID, id)
}

func TestKeyedSwitchUnknownChain(t *testing.T) {
	ctx := context.Background()
	k, _ := newKeyed(t, nil)

	_, err := k.Request(ctx, "wallet_switchEthereumChain", types.SwitchChainParams{ChainID: types.BaseSepolia().ChainID})
	code, ok := ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnrecognizedChain, code)

	_, err = k.Request(ctx, "wallet_addEthereumChain", types.BaseSepolia())
	require.NoError(t, err)

	id, err := readChainID(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, types.BaseSepoliaChainID, id)

	_, err = k.Request(ctx, "wallet_switchEthereumChain", types.SwitchChainParams{ChainID: "0x2105"})
	require.NoError(t, err)
	id, err = readChainID(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, types.BaseChainID, id)
}

func TestKeyedSendTransactionSigns(t *testing.T) {
	ctx := context.Background()
	k, backends := newKeyed(t, nil)

	to := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	from := k.Address()
	raw, err := k.Request(ctx, "eth_sendTransaction", types.TxArgs{From: &from, To: &to, Data: []byte{1, 2, 3}})
	require.NoError(t, err)

	var hash common.Hash
	require.NoError(t, json.Unmarshal(raw, &hash))

	b := backends["https://mainnet.base.org"]
	require.Len(t, b.sent, 1)
	tx := b.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint64(60_000), tx.Gas())
	assert.Equal(t, int64(11_000_000), tx.GasFeeCap().Int64())
	assert.Equal(t, []byte{1, 2, 3}, tx.Data())

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, from, sender)

	raw, err = k.Request(ctx, "eth_getTransactionReceipt", hash)
	require.NoError(t, err)
	var receipt types.Receipt
	require.NoError(t, json.Unmarshal(raw, &receipt))
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, hash, receipt.TxHash)
}

func TestKeyedReceiptNotFound(t *testing.T) {
	k, _ := newKeyed(t, nil)

	raw, err := k.Request(context.Background(), "eth_getTransactionReceipt", common.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestKeyedConfirmDeclined(t *testing.T) {
	k, backends := newKeyed(t, func(context.Context, types.TxArgs) bool { return false })

	to := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	_, err := k.Request(context.Background(), "eth_sendTransaction", types.TxArgs{To: &to, Data: []byte{1}})
	assert.True(t, IsUserRejected(err))
	assert.Empty(t, backends)
}

func TestKeyedRejectsForeignSender(t *testing.T) {
	k, _ := newKeyed(t, nil)

	from := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	to := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	_, err := k.Request(context.Background(), "eth_sendTransaction", types.TxArgs{From: &from, To: &to})
	code, ok := ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnauthorized, code)
}

func TestKeyedEthCall(t *testing.T) {
	k, _ := newKeyed(t, nil)

	to := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	raw, err := k.Request(context.Background(), "eth_call", types.TxArgs{To: &to, Data: []byte{0x01}}, "latest")
	require.NoError(t, err)

	var out hexutil.Bytes
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, hexutil.Bytes{0xca, 0xfe, 0x01}, out)
}

func TestKeyedAdapter(t *testing.T) {
	a := KeyedAdapter{PrivateKey: "0x" + testKey, Chains: []types.ChainParams{types.BaseMainnet()}}
	require.True(t, a.Available())

	p, err := a.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), p.(*KeyedProvider).Address())

	_, err = KeyedAdapter{PrivateKey: "zz", Chains: a.Chains}.Open(context.Background())
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	ranked := Rank([]Adapter{
		StaticAdapter{AdapterName: "c", Rank: 3},
		StaticAdapter{AdapterName: "a", Rank: 1},
		StaticAdapter{AdapterName: "b", Rank: 1},
	})
	names := []string{ranked[0].Name(), ranked[1].Name(), ranked[2].Name()}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
